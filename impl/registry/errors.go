package registry

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorInfo is one entry in the error list a registry returns with a non-200
// response.
type ErrorInfo struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail,omitempty"`
}

// errorList is the body of a registry error response:
//
//	{"errors":[{"code":"UNAUTHORIZED","message":"authentication required","detail":null}]}
type errorList struct {
	Errors []ErrorInfo `json:"errors"`
}

// APIError is a well-formed error response from a registry. It carries every
// {code, message} pair the registry sent, verbatim.
type APIError struct {
	StatusCode int
	URL        string
	Errors     []ErrorInfo
	// Challenge is parsed from the Www-Authenticate header of a 401, if present
	Challenge *Challenge
}

func (e *APIError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "API error (status %d)", e.StatusCode)
	for _, info := range e.Errors {
		fmt.Fprintf(&sb, "\n  %s: %s", info.Code, info.Message)
	}
	return sb.String()
}

// HasCode returns true if any error in the receiver has the passed code, for
// example "MANIFEST_UNKNOWN".
func (e *APIError) HasCode(code string) bool {
	for _, info := range e.Errors {
		if info.Code == code {
			return true
		}
	}
	return false
}

// TransportError is a failure below the HTTP status layer: the request could not
// be sent, the connection dropped while reading, or an error body could not be
// decoded.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is a 200 response whose body does not parse into the expected
// schema. This is a protocol violation by the server.
type DecodeError struct {
	URL       string
	MediaType string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("unable to decode %s from %s: %s", e.MediaType, e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
