package httputil

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/domain"
)

// DomainError maps a domain error to its HTTP status and writes it. A lockout
// carries a Retry-After header with the remaining lock duration.
func DomainError(w http.ResponseWriter, err error) {
	status := domain.HTTPStatus(err)

	var locked *domain.LockedError
	if errors.As(err, &locked) {
		seconds := int(locked.RetryAfter(time.Now()).Seconds())
		if seconds > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
		}
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	Error(w, status, message)
}
