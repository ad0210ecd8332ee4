package api

import (
	"errors"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

// EnvelopeVersion is the wire version of the response envelope.
// Clients check this field to detect incompatible changes.
const EnvelopeVersion = 1

// APIEnvelope wraps successful responses and simple errors.
// The version field MUST stay named "v"; clients depend on it.
type APIEnvelope struct {
	Version int    `json:"v" doc:"Envelope version"`
	Success bool   `json:"success" doc:"Whether the request succeeded"`
	Data    any    `json:"data,omitempty" doc:"Response payload"`
	Error   string `json:"error,omitempty" doc:"Error message for failed requests"`
}

// APIErrorEnvelope wraps errors that carry a machine-readable code.
type APIErrorEnvelope struct {
	Version int    `json:"v" doc:"Envelope version"`
	Success bool   `json:"success" doc:"Always false"`
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// EnvelopeTransformer wraps every response body in a versioned envelope.
// Registered on the huma config so handlers only return plain payloads.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	code, err := strconv.Atoi(status)
	if err != nil {
		code = 200
	}

	if code < 400 {
		return APIEnvelope{
			Version: EnvelopeVersion,
			Success: true,
			Data:    v,
		}, nil
	}

	// Detailed errors keep their code and details.
	var apiErr *APIError
	if errors.As(toError(v), &apiErr) && apiErr.Code != "" {
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Success: false,
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		}, nil
	}

	return APIEnvelope{
		Version: EnvelopeVersion,
		Success: false,
		Error:   errorMessage(v),
	}, nil
}

// toError returns v as an error if it is one, else nil.
func toError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return nil
}

// errorMessage extracts a message from an error body.
func errorMessage(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return "request failed"
}
