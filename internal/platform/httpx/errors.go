// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors handlers wrap to pick a status code.
var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("invalid parameter")
	ErrUnavailable     = errors.New("unavailable")
	ErrTooManyRequests = errors.New("too many requests")
)

// RespondError maps wrapped sentinels to RFC7807 responses. Anything else is
// a 500 whose detail is withheld from the client.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Não encontrado", err.Error())
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Parâmetro inválido", err.Error())
	case errors.Is(err, ErrUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Indisponível", err.Error())
	case errors.Is(err, ErrTooManyRequests):
		Problem(w, http.StatusTooManyRequests, "Muitas requisições", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Erro interno", "")
	}
}

// Status returns the code RespondError would write for err.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
