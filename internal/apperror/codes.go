package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Aggregation error codes
const (
	// Request-level errors, the only ones that reach API callers
	CodeInvalidRequest          Code = "INVALID_REQUEST"
	CodeAllProvidersUnavailable Code = "ALL_PROVIDERS_UNAVAILABLE"

	// Provider errors, contained by the aggregator
	CodeProviderError       Code = "PROVIDER_ERROR"
	CodeProviderUnavailable Code = "PROVIDER_UNAVAILABLE"
	CodeProviderAuthFailed  Code = "PROVIDER_AUTH_FAILED"
	CodeProviderRateLimited Code = "PROVIDER_RATE_LIMITED"
	CodeProviderUnsupported Code = "PROVIDER_UNSUPPORTED"
	CodeMalformedRoute      Code = "MALFORMED_ROUTE"

	// Registry and orders
	CodeTokenNotFound Code = "TOKEN_NOT_FOUND"
	CodeOrderNotFound Code = "ORDER_NOT_FOUND"

	// Blockchain / gas oracle
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeGasOracleUnavailable     Code = "GAS_ORACLE_UNAVAILABLE"

	// Cache
	CodeCacheMiss Code = "CACHE_MISS"

	// Circuit breaker errors
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
