package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	diag "github.com/vango-dev/reactor/internal/errors"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, fmt.Errorf("encode response: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}

// writeError classifies err and answers with the matching status.
func writeError(w http.ResponseWriter, err error) {
	d := diag.Classify(err)
	body, _ := json.Marshal(errorBody{Error: err.Error(), Code: d.Code})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(d))
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n"))
}

// statusFor maps a diagnostic to an HTTP status.
func statusFor(d *diag.ReactorError) int {
	switch d.Code {
	case "R003", "S004":
		return http.StatusNotFound
	case "R004", "R005":
		return http.StatusConflict
	case "X001":
		return http.StatusInternalServerError
	}
	switch d.Category {
	case diag.CategoryValidation:
		return http.StatusBadRequest
	case diag.CategoryScript:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func badRequest(format string, args ...any) error {
	return diag.Newf(diag.CategoryValidation, "bad request: "+format, args...)
}

// decodeBody decodes the JSON body into v. It reports false, without
// error, when the body is empty.
func decodeBody(r *http.Request, v any) (bool, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return false, badRequest("read body: %v", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return false, badRequest("invalid JSON: %v", err)
	}
	if dec.More() {
		return false, badRequest("trailing data after JSON value")
	}
	return true, nil
}
