// Package types defines the JSON envelopes every storefront endpoint
// responds with. Payloads ride under "data"; failures under "error".
package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError mirrors the error taxonomy codes so clients can branch on
// Code without parsing messages.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
