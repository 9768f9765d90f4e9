package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Too many requests, slow down and retry later",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Aggregation
	CodeInvalidRequest:          "The route request is invalid",
	CodeAllProvidersUnavailable: "No quote provider could serve this request, try again shortly",

	// Providers
	CodeProviderError:       "Quote provider returned an error",
	CodeProviderUnavailable: "Quote provider is unavailable",
	CodeProviderAuthFailed:  "Quote provider rejected our credentials",
	CodeProviderRateLimited: "Quote provider rate limit reached",
	CodeProviderUnsupported: "Quote provider does not support this request",
	CodeMalformedRoute:      "Quote provider returned a malformed route",

	// Registry and orders
	CodeTokenNotFound: "Token not found in registry",
	CodeOrderNotFound: "Order not found",

	// Blockchain / gas oracle
	CodeEthereumConnectionFailed: "Failed to connect to chain RPC",
	CodeEthereumRPCError:         "Chain RPC call failed",
	CodeGasOracleUnavailable:     "Gas oracle is unavailable",

	// Cache
	CodeCacheMiss: "Cache miss",

	// Circuit breaker errors
	CodeCircuitOpen: "Circuit breaker is open",
}
