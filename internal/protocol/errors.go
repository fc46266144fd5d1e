package protocol

// Code is an error/status discriminator sent to clients alongside an HTTP
// status code or a WebSocket error frame. Kept as plain strings (not an
// enum with String()) because they round-trip through JSON verbatim.
type Code string

const (
	CodeValidationError          Code = "VALIDATION_ERROR"
	CodeParseError               Code = "PARSE_ERROR"
	CodeInvalidAction            Code = "INVALID_ACTION"
	CodeMissingAuth              Code = "MISSING_AUTH"
	CodeInvalidAuth              Code = "INVALID_AUTH"
	CodeInvalidRegistrationSecret Code = "INVALID_REGISTRATION_SECRET"
	CodeAgentExists              Code = "AGENT_EXISTS"
	CodeBanned                   Code = "BANNED"
	CodeRateLimited              Code = "RATE_LIMITED"
	CodeSoftBanned               Code = "SOFT_BANNED"
	CodeStateUnavailable         Code = "STATE_UNAVAILABLE"
	CodeAuthFailed               Code = "AUTH_FAILED"
	CodeAuthRequired             Code = "AUTH_REQUIRED"
	CodeNotSupported             Code = "NOT_SUPPORTED"
	CodeInternal                 Code = "INTERNAL_ERROR"
)

// APIError is the JSON body shape for every non-2xx HTTP response.
type APIError struct {
	Error     string  `json:"error"`
	Code      Code    `json:"code"`
	Reason    string  `json:"reason,omitempty"`
	ExpiresAt *int64  `json:"expiresAt,omitempty"`
}
