package auth

// Kind identifies why an authentication step failed. Kinds are part of
// the client-visible API surface.
type Kind string

const (
	KindUnknownAccount  Kind = "UnknownAccount"
	KindAccountDisabled Kind = "AccountDisabled"
	KindCodeMismatch    Kind = "CodeMismatch"
	KindCodeExpired     Kind = "CodeExpired"
	KindTokenExpired    Kind = "TokenExpired"
	KindTokenInvalid    Kind = "TokenInvalid"
)

// Error is a reason-coded authentication failure. It never carries
// secret material.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

var (
	ErrUnknownAccount  = &Error{Kind: KindUnknownAccount, Message: "account not found"}
	ErrAccountDisabled = &Error{Kind: KindAccountDisabled, Message: "account is disabled"}
	ErrCodeMismatch    = &Error{Kind: KindCodeMismatch, Message: "access code does not match"}
	ErrCodeExpired     = &Error{Kind: KindCodeExpired, Message: "access code has expired"}
	ErrTokenExpired    = &Error{Kind: KindTokenExpired, Message: "session token has expired"}
	ErrTokenInvalid    = &Error{Kind: KindTokenInvalid, Message: "session token is invalid"}
)
