package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	diag "github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/pkg/reactive"
	"github.com/vango-dev/reactor/pkg/script"
)

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		ok      bool
		wantErr bool
	}{
		{"empty", "", false, false},
		{"whitespace", "  \n", false, false},
		{"value", `[1, 2]`, true, false},
		{"invalid", `[1,`, false, true},
		{"trailing", `[1] [2]`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var v []any
			ok, err := decodeBody(r, &v)
			assert.Equal(t, tt.ok, ok)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, http.StatusBadRequest, statusFor(diag.Classify(err)))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: \"get\"", reactive.ErrReservedKey), http.StatusBadRequest},
		{fmt.Errorf("%w: empty key", reactive.ErrInvalidKey), http.StatusBadRequest},
		{fmt.Errorf("%w: \"x\"", reactive.ErrUnknownProperty), http.StatusNotFound},
		{fmt.Errorf("%w: \"x\"", script.ErrUnknownAction), http.StatusNotFound},
		{fmt.Errorf("%w: a -> b -> a", reactive.ErrCyclicDependency), http.StatusConflict},
		{reactive.ErrNestedComputation, http.StatusConflict},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(diag.Classify(tt.err)))
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, fmt.Errorf("%w: \"set\"", reactive.ErrReservedKey))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "R001", body.Code)
	assert.Contains(t, body.Error, `"set"`)
}
