package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
		detail string
	}{
		{fmt.Errorf("%w: unknown report \"x\"", ErrNotFound), http.StatusNotFound, `not found: unknown report "x"`},
		{fmt.Errorf("%w: year", ErrValidation), http.StatusBadRequest, "invalid parameter: year"},
		{fmt.Errorf("%w: cache", ErrUnavailable), http.StatusServiceUnavailable, "unavailable: cache"},
		{ErrTooManyRequests, http.StatusTooManyRequests, "too many requests"},
		{errors.New("driver exploded"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)

		assert.Equal(t, tc.status, rec.Code)
		assert.Equal(t, tc.status, Status(tc.err))
		assert.Equal(t, ContentTypeProblem, rec.Header().Get("Content-Type"))
		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.status, body.Status)
		assert.Equal(t, tc.detail, body.Detail)
		assert.NotEmpty(t, body.Title)
	}
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusAccepted, map[string]int{"year": 2024})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"year":2024}`, rec.Body.String())
}
