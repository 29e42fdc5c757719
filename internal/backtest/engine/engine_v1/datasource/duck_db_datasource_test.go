package datasource

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vnquant-lab/backtest/internal/logger"
)

type DuckDBTestSuite struct {
	suite.Suite
	source PriceSource
}

func TestDuckDBSuite(t *testing.T) {
	suite.Run(t, new(DuckDBTestSuite))
}

func (suite *DuckDBTestSuite) SetupTest() {
	source, err := NewDuckDBPriceSource(logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.source = source
}

func (suite *DuckDBTestSuite) TearDownTest() {
	suite.NoError(suite.source.Close())
}

func (suite *DuckDBTestSuite) writeCSV(rows [][]string) string {
	path := filepath.Join(suite.T().TempDir(), "prices.csv")
	content := "ticker,date,open,high,low,close,volume\n"

	for _, row := range rows {
		content += fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s\n",
			row[0], row[1], row[2], row[3], row[4], row[5], row[6])
	}

	suite.Require().NoError(os.WriteFile(path, []byte(content), 0644))

	return path
}

func (suite *DuckDBTestSuite) TestInitializeMissingFile() {
	err := suite.source.Initialize("/nonexistent/prices.csv")
	suite.Error(err)
}

func (suite *DuckDBTestSuite) TestGetPricesFromCSV() {
	path := suite.writeCSV([][]string{
		{"AAA", "2024-01-02", "10", "11", "9", "10.5", "1000"},
		{"AAA", "2024-01-03", "10.5", "12", "10", "11.5", "1200"},
		{"BBB", "2024-01-02", "20", "21", "19", "20.5", "800"},
		{"CCC", "2024-01-02", "30", "31", "29", "30.5", "500"},
	})

	suite.Require().NoError(suite.source.Initialize(path))

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	bars, err := suite.source.GetPrices([]string{"AAA", "BBB"}, start, end)
	suite.NoError(err)
	suite.Len(bars, 3)

	suite.Equal("AAA", bars[0].Ticker)
	suite.InDelta(10.5, bars[0].Close, 1e-9)
	suite.Equal("BBB", bars[1].Ticker)
	suite.Equal("AAA", bars[2].Ticker)

	count, err := suite.source.Count([]string{"AAA", "BBB"}, start, end)
	suite.NoError(err)
	suite.Equal(3, count)
}

func (suite *DuckDBTestSuite) TestGetPricesRespectsDateRange() {
	path := suite.writeCSV([][]string{
		{"AAA", "2024-01-02", "10", "11", "9", "10.5", "1000"},
		{"AAA", "2024-02-02", "12", "13", "11", "12.5", "1000"},
	})

	suite.Require().NoError(suite.source.Initialize(path))

	bars, err := suite.source.GetPrices([]string{"AAA"},
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	suite.NoError(err)
	suite.Len(bars, 1)
	suite.True(bars[0].Date.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
}

func (suite *DuckDBTestSuite) TestReinitializeReplacesData() {
	first := suite.writeCSV([][]string{
		{"AAA", "2024-01-02", "10", "11", "9", "10.5", "1000"},
	})
	suite.Require().NoError(suite.source.Initialize(first))

	second := suite.writeCSV([][]string{
		{"BBB", "2024-01-02", "20", "21", "19", "20.5", "800"},
	})
	suite.Require().NoError(suite.source.Initialize(second))

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	bars, err := suite.source.GetPrices([]string{"AAA", "BBB"}, start, end)
	suite.NoError(err)
	suite.Len(bars, 1)
	suite.Equal("BBB", bars[0].Ticker)
}
