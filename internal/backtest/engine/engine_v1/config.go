package engine

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/vnquant-lab/backtest/internal/commission_fee"
	"github.com/vnquant-lab/backtest/pkg/errors"
)

type BacktestEngineV1Config struct {
	InitialCapital float64               `yaml:"initial_capital" json:"initial_capital" validate:"required,gt=0" jsonschema:"title=Initial Capital,description=Starting capital for the backtest,minimum=0"`
	CommissionRate float64               `yaml:"commission_rate" json:"commission_rate" validate:"gte=0,lt=1" jsonschema:"title=Commission Rate,description=Commission charged per order leg as a fraction of notional"`
	Broker         commission_fee.Broker `yaml:"broker" json:"broker" jsonschema:"title=Broker,description=The broker to use for commission calculations"`
	Tickers        []string              `yaml:"tickers" json:"tickers" validate:"required,min=1,dive,required" jsonschema:"title=Tickers,description=Tickers to trade"`
	StartTime      time.Time             `yaml:"start_time" json:"start_time" validate:"required" jsonschema:"title=Start Time,description=First day of the backtest period"`
	EndTime        time.Time             `yaml:"end_time" json:"end_time" validate:"required" jsonschema:"title=End Time,description=Last day of the backtest period"`
	RiskFreeRate   float64               `yaml:"risk_free_rate" json:"risk_free_rate" validate:"gte=0" jsonschema:"title=Risk Free Rate,description=Annual risk-free rate used for the Sharpe ratio"`
}

// DefaultConfig returns a config with the defaults of the engine: flat
// 0.15% commission and a 3% annual risk-free rate.
func DefaultConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCapital: 0,
		CommissionRate: commission_fee.DefaultCommissionRate,
		Broker:         commission_fee.BrokerFlatRate,
		Tickers:        nil,
		StartTime:      time.Time{},
		EndTime:        time.Time{},
		RiskFreeRate:   0.03,
	}
}

// Validate checks the configuration.
func (c *BacktestEngineV1Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest config", err)
	}

	if c.EndTime.Before(c.StartTime) {
		return errors.Newf(errors.ErrCodeInvalidDateRange,
			"end time %s is before start time %s",
			c.EndTime.Format("2006-01-02"), c.StartTime.Format("2006-01-02"))
	}

	return nil
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config.
func (c *BacktestEngineV1Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if strings.Contains(t.String(), "commission_fee.Broker") {
				return &jsonschema.Schema{
					Type: "string",
					Enum: commission_fee.AllBrokers,
				}
			}
			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config.
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
