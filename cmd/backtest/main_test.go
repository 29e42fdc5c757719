package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/vnquant-lab/backtest/internal/strategy"
)

type MainTestSuite struct {
	suite.Suite
}

func TestMainSuite(t *testing.T) {
	suite.Run(t, new(MainTestSuite))
}

func (suite *MainTestSuite) TestLoadStrategyConfigEmptyPath() {
	config, err := loadStrategyConfig("")
	suite.NoError(err)
	suite.Empty(config)
}

func (suite *MainTestSuite) TestLoadStrategyConfigMissingFile() {
	_, err := loadStrategyConfig("/nonexistent/params.yaml")
	suite.Error(err)
}

func (suite *MainTestSuite) TestLoadStrategyConfigFeedsInitialize() {
	path := filepath.Join(suite.T().TempDir(), "params.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte("lookback: 10\ntop_n: 3\n"), 0644))

	config, err := loadStrategyConfig(path)
	suite.NoError(err)

	// the file contents, not the path, reach the strategy
	s := strategy.NewMomentum()
	suite.NoError(s.Initialize(config))

	momentum, ok := s.(*strategy.Momentum)
	suite.Require().True(ok)
	suite.Equal(10, momentum.Lookback)
	suite.Equal(3, momentum.TopN)
}
