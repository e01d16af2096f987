package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Definition / validation errors (load time)
	ErrValidation        = errors.New("definition failed validation")
	ErrUnknownBaseType   = errors.New("unknown indicator base type")
	ErrBadParameters     = errors.New("indicator parameters do not match the base type schema")
	ErrDanglingVariant   = errors.New("reference to unknown indicator variant")
	ErrCategoryMisuse    = errors.New("indicator variant referenced from a slot its category forbids")
	ErrDependencyCycle   = errors.New("indicator variants form a dependency cycle")
	ErrDuplicateVariant  = errors.New("duplicate indicator variant id")
	ErrDuplicateStrategy = errors.New("duplicate strategy name")

	// Evaluation errors (runtime)
	ErrNoData        = errors.New("no ticks available in the indicator window")
	ErrCircuitOpen   = errors.New("indicator recomputation failed with no fallback value")
	ErrSymbolLocked  = errors.New("symbol lock held by another strategy")
	ErrLockNotHeld   = errors.New("symbol lock not held by the releasing strategy")
	ErrInstanceFault = errors.New("runtime instance halted after audit write failure")

	// Order gateway errors
	ErrOrderRejected        = errors.New("order rejected by the gateway")
	ErrOrderNotFound        = errors.New("order not found on the gateway")
	ErrInsufficientFunds    = errors.New("insufficient funds for operation")
	ErrOrderPlacementFailed = errors.New("failed to place order")

	// Persistence errors
	ErrRecorderFailure = errors.New("decision record write failed")
	ErrDBConnection    = errors.New("database connection error")
	ErrQueryFailed     = errors.New("database query failed")
)
