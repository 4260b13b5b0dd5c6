package httputil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/R3E-Network/chirp/internal/errors"
)

const maxRequestBodyBytes = 64 << 10

// ErrorBody is the JSON envelope for every error response.
type ErrorBody struct {
	Error ErrorPayload `json:"error"`
}

// ErrorPayload carries the wire code, a user-facing message and optional details.
type ErrorPayload struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	TraceID string                 `json:"trace_id,omitempty"`
}

// WriteJSON writes data as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteErrorResponse writes the error envelope.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	payload := ErrorPayload{
		Code:    code,
		Message: message,
		Details: details,
	}
	if r != nil {
		payload.TraceID = w.Header().Get("X-Trace-ID")
	}
	WriteJSON(w, status, ErrorBody{Error: payload})
}

// WriteServiceError maps err onto the error envelope. Errors that are not
// ServiceErrors are reported as internal errors without leaking the cause.
func WriteServiceError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Internal("", err)
	}
	if serviceErr.Code == errors.CodeTooManyRequests {
		if retry, ok := serviceErr.Details["retry_after"].(int); ok && retry > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(retry))
		}
	}
	WriteErrorResponse(w, r, serviceErr.HTTPStatus, string(serviceErr.Code), serviceErr.Message, serviceErr.Details)
}

// DecodeJSON decodes a bounded request body into dst. Unknown fields are ignored.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return errors.BadRequest("Request body is required")
	}
	defer r.Body.Close()

	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return errors.BadRequest("Request body is required")
		}
		return errors.BadRequest(fmt.Sprintf("Malformed JSON body: %v", err))
	}
	return nil
}
