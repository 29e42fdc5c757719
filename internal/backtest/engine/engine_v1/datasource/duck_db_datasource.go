package datasource

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/vnquant-lab/backtest/internal/logger"
	"github.com/vnquant-lab/backtest/internal/types"
	"github.com/vnquant-lab/backtest/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBPriceSource reads daily bars from CSV or Parquet files through an
// in-memory DuckDB view. The file must carry the columns ticker, date,
// open, high, low, close, volume.
type DuckDBPriceSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBPriceSource opens an in-memory DuckDB instance.
func NewDuckDBPriceSource(log *logger.Logger) (PriceSource, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	return &DuckDBPriceSource{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize implements PriceSource. It exposes the file at path as the
// daily_prices view, replacing any previously loaded data.
func (d *DuckDBPriceSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB price source", zap.String("path", path))

	if _, err := d.db.Exec(`DROP VIEW IF EXISTS daily_prices;`); err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to drop existing view", err)
	}

	// CREATE VIEW is raw SQL since squirrel does not support it
	var reader string

	switch filepath.Ext(path) {
	case ".parquet":
		reader = "read_parquet"
	default:
		reader = "read_csv_auto"
	}

	query := fmt.Sprintf(`
		CREATE VIEW daily_prices AS
		SELECT ticker, date, open, high, low, close, volume FROM %s('%s');
	`, reader, path)

	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to load price data from %s", path)
	}

	return nil
}

// GetPrices implements PriceSource.
func (d *DuckDBPriceSource) GetPrices(tickers []string, start time.Time, end time.Time) ([]types.PriceBar, error) {
	query := d.sq.
		Select("ticker", "date", "open", "high", "low", "close", "volume").
		From("daily_prices").
		Where(squirrel.Eq{"ticker": tickers}).
		Where(squirrel.GtOrEq{"date": start}).
		Where(squirrel.LtOrEq{"date": end}).
		OrderBy("date", "ticker").
		RunWith(d.db)

	rows, err := query.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query daily prices", err)
	}
	defer rows.Close()

	var bars []types.PriceBar

	for rows.Next() {
		var bar types.PriceBar

		if err := rows.Scan(&bar.Ticker, &bar.Date, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan price row", err)
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read price rows", err)
	}

	return bars, nil
}

// Count implements PriceSource.
func (d *DuckDBPriceSource) Count(tickers []string, start time.Time, end time.Time) (int, error) {
	query := d.sq.
		Select("COUNT(*)").
		From("daily_prices").
		Where(squirrel.Eq{"ticker": tickers}).
		Where(squirrel.GtOrEq{"date": start}).
		Where(squirrel.LtOrEq{"date": end}).
		RunWith(d.db)

	var count int
	if err := query.QueryRow().Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count price rows", err)
	}

	return count, nil
}

// Close implements PriceSource.
func (d *DuckDBPriceSource) Close() error {
	return d.db.Close()
}
