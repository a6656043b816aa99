package dispatch

import "encoding/json"

// Envelope is the wire request: the target type, the operation, and the
// ordinal-encoded business parameters. Probe requests evaluate
// authorization only. Injected services and cancellation never appear here.
type Envelope struct {
	Type      string         `json:"type"`
	Operation string         `json:"operation"`
	Method    string         `json:"method,omitempty"`
	Probe     bool           `json:"probe,omitempty"`
	Params    []ParamPayload `json:"params"`
}

// ParamPayload is one encoded business parameter.
type ParamPayload struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Response is the wire reply: exactly one of result, denied or error.
type Response struct {
	Result *ResultPayload `json:"result,omitempty"`
	Denied *DenialPayload `json:"denied,omitempty"`
	Error  *ErrorPayload  `json:"error,omitempty"`
}

// ResultPayload carries the encoded operation result; a null value is a nil
// factory result.
type ResultPayload struct {
	Type  string          `json:"type,omitempty"`
	Value json.RawMessage `json:"value"`
}

// DenialPayload reports a server-side authorization denial. The message is
// empty for boolean denials.
type DenialPayload struct {
	Message string `json:"message,omitempty"`
}

// ErrorPayload reports a server-side execution failure.
type ErrorPayload struct {
	Message string `json:"message"`
}
