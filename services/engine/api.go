package engine

// Error taxonomy shared by the batch tools and the service API

import (
	"errors"
)

var (
	// ErrNoData marks an empty or missing price series. The symbol is skipped.
	ErrNoData = errors.New("no price data")
	// ErrInsufficientHistory marks a series shorter than the indicator lookback.
	ErrInsufficientHistory = errors.New("insufficient history for indicator lookback")
	// ErrInvalidParams marks strategy parameters outside their domain.
	ErrInvalidParams = errors.New("invalid strategy parameters")
	// ErrInvalidSeries marks unordered or duplicated bar dates.
	ErrInvalidSeries = errors.New("invalid price series")
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Details == "" {
		return e.Code + ": " + e.Message
	}
	return e.Code + ": " + e.Message + " (" + e.Details + ")"
}

var (
	apiInvalidParams = APIError{Code: "INVALID_PARAMS", Message: "Invalid parameters provided"}
	apiDataNotFound  = APIError{Code: "DATA_NOT_FOUND", Message: "Required data not available"}
	apiInvalidSeries = APIError{Code: "INVALID_SERIES", Message: "Price series is not strictly ordered"}
	apiExecution     = APIError{Code: "EXECUTION_FAILED", Message: "Backtest execution failed"}
)

// ToAPIError classifies err into the service error taxonomy.
func ToAPIError(err error) *APIError {
	if err == nil {
		return nil
	}
	var out APIError
	switch {
	case errors.Is(err, ErrInvalidParams):
		out = apiInvalidParams
	case errors.Is(err, ErrNoData), errors.Is(err, ErrInsufficientHistory):
		out = apiDataNotFound
	case errors.Is(err, ErrInvalidSeries):
		out = apiInvalidSeries
	default:
		out = apiExecution
	}
	out.Details = err.Error()
	return &out
}
