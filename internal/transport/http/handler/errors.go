package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/otp-auth-api/internal/domain"
)

// writeServiceError maps application errors onto HTTP status codes. Rate-limit
// rejections become 429 with a Retry-After header rounded up to whole seconds
// so a client sleeping exactly that long is never rejected again.
func writeServiceError(w http.ResponseWriter, err error) {
	var rle *domain.RateLimitError
	if errors.As(err, &rle) {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rle)))
		writeError(w, http.StatusTooManyRequests, rle.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		var pe *domain.ProviderError
		if errors.As(err, &pe) {
			writeError(w, http.StatusBadGateway, pe.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func retryAfterSeconds(rle *domain.RateLimitError) int {
	return int(math.Ceil(rle.RetryAfter.Seconds()))
}
