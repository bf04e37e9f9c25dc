package protocol

import "fmt"

// AuthStatus is the result of an authentication attempt, sent in the AUTH reply
type AuthStatus uint32

const (
	AuthNone AuthStatus = iota
	AuthRequested
	AuthOK
	AuthBadVersion
	AuthBadName
	AuthBadPassword
	AuthVerificationFailure
	AuthFull
	AuthRequirePassword
	AuthVerified
	AuthUnknownKeyDisallowed
)

var authStatusNames = map[AuthStatus]string{
	AuthNone:                 "none",
	AuthRequested:            "requested",
	AuthOK:                   "ok",
	AuthBadVersion:           "bad_version",
	AuthBadName:              "bad_name",
	AuthBadPassword:          "bad_password",
	AuthVerificationFailure:  "verification_failure",
	AuthFull:                 "full",
	AuthRequirePassword:      "require_password",
	AuthVerified:             "verified",
	AuthUnknownKeyDisallowed: "unknown_key_disallowed",
}

// String returns a stable identifier for log fields
func (s AuthStatus) String() string {
	if name, ok := authStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("auth_status(%d)", uint32(s))
}

// Reason returns the user-facing message for a rejected authentication
func (s AuthStatus) Reason() string {
	switch s {
	case AuthBadVersion:
		return "The server is running a different version"
	case AuthBadName:
		return "Bad player name"
	case AuthBadPassword:
		return "Bad password"
	case AuthVerificationFailure:
		return "Verification failure"
	case AuthFull:
		return "The server is full"
	case AuthUnknownKeyDisallowed:
		return "Unknown key, the server only accepts known players"
	case AuthRequirePassword:
		return "The server requires a password"
	}
	return "Authentication failed"
}

// Rejected reports whether the status ends the connection
func (s AuthStatus) Rejected() bool {
	switch s {
	case AuthBadVersion, AuthBadName, AuthBadPassword, AuthVerificationFailure,
		AuthFull, AuthUnknownKeyDisallowed:
		return true
	}
	return false
}
