package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details any             `json:"details,omitempty"`
	Plaid   *PlaidErrorInfo `json:"plaid,omitempty"`
}

// PlaidErrorInfo exposes the upstream error fields clients need to drive
// Link update mode or show the institution's message.
type PlaidErrorInfo struct {
	ErrorType      string  `json:"error_type"`
	ErrorCode      string  `json:"error_code"`
	DisplayMessage *string `json:"display_message,omitempty"`
	RequestID      string  `json:"request_id,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
