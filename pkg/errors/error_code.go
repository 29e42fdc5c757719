package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidDateRange     ErrorCode = 102
	ErrCodeNoTickers            ErrorCode = 103
	ErrCodeInvalidShareCount    ErrorCode = 104
	ErrCodeInvalidPrice         ErrorCode = 105

	// Data/Resource errors (200-299)
	ErrCodeNoDataFound           ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202

	// Strategy errors (400-499)
	ErrCodeStrategyNotFound     ErrorCode = 400
	ErrCodeStrategyConfigError  ErrorCode = 401
	ErrCodeStrategyRuntimeError ErrorCode = 402

	// Portfolio errors (500-599)
	ErrCodeInsufficientFunds  ErrorCode = 500
	ErrCodePositionNotFound   ErrorCode = 501
	ErrCodeOversizedSell      ErrorCode = 502
	ErrCodeDuplicatePosition  ErrorCode = 503
	ErrCodePositionClosed     ErrorCode = 504

	// Backtest errors (600-699)
	ErrCodeBacktestConfigError  ErrorCode = 600
	ErrCodeBacktestNoStrategies ErrorCode = 601
	ErrCodeBacktestNoDatasource ErrorCode = 602
	ErrCodeBacktestNoResultsDir ErrorCode = 603
)
