package httpclient

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fd1az/swap-aggregator/internal/apperror"
)

const maxErrorBody = 512

// ProviderErrorHandler maps upstream HTTP statuses onto the provider error
// family. 401/403 become auth failures, 429 a provider rate limit and 5xx an
// unavailable provider. Any other 4xx is a generic provider error.
func ProviderErrorHandler(provider string) ResponseErrorHandler {
	return func(statusCode int, body []byte) error {
		if statusCode < http.StatusBadRequest {
			return nil
		}
		cause := fmt.Errorf("upstream status %d: %s", statusCode, truncate(body))

		switch {
		case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
			return apperror.Provider(apperror.CodeProviderAuthFailed, provider, cause)
		case statusCode == http.StatusTooManyRequests:
			return apperror.Provider(apperror.CodeProviderRateLimited, provider, cause)
		case statusCode >= http.StatusInternalServerError:
			return apperror.Provider(apperror.CodeProviderUnavailable, provider, cause)
		default:
			return apperror.Provider(apperror.CodeProviderError, provider, cause)
		}
	}
}

// RetryAfter parses a Retry-After header given in seconds. Zero when absent.
func RetryAfter(resp *Response) time.Duration {
	if resp == nil || resp.Response == nil {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After")))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
