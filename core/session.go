package core

import (
	"fmt"
	"time"
)

// DefaultValidationWindow is how long a challenge stays acceptable after issuance
const DefaultValidationWindow = 300 * time.Second

const challengeSuffix = "starRegistry"

// Session is an outstanding ownership challenge for an address
type Session struct {
	Address          string        `json:"address"`
	IssuedAt         int64         `json:"issuedAt"` // unix seconds
	ValidationWindow time.Duration `json:"validationWindow"`
	Grant            string        `json:"grant,omitempty"` // registration grant, set once authenticated
}

// NewSession starts a challenge for address at issuedAt
func NewSession(address string, issuedAt int64, window time.Duration) *Session {
	return &Session{
		Address:          address,
		IssuedAt:         issuedAt,
		ValidationWindow: window,
	}
}

// ChallengeMessage is the message the address owner has to sign.
// It is derived from the address and issuance time only.
func (s *Session) ChallengeMessage() string {
	return ChallengeMessage(s.Address, s.IssuedAt)
}

// ChallengeMessage formats the challenge for address issued at issuedAt
func ChallengeMessage(address string, issuedAt int64) string {
	return fmt.Sprintf("%s:%d:%s", address, issuedAt, challengeSuffix)
}

// ExpiresAt returns the end of the validation window
func (s *Session) ExpiresAt() time.Time {
	return time.Unix(s.IssuedAt, 0).Add(s.ValidationWindow)
}

// IsExpired reports whether more than the validation window has elapsed since issuance
func (s *Session) IsExpired(now time.Time) bool {
	return now.Sub(time.Unix(s.IssuedAt, 0)) > s.ValidationWindow
}

// Remaining returns the whole seconds left in the window, never negative
func (s *Session) Remaining(now time.Time) int64 {
	left := s.ValidationWindow - now.Sub(time.Unix(s.IssuedAt, 0))
	if left <= 0 {
		return 0
	}
	return int64(left / time.Second)
}

// WindowSeconds returns the configured validation window in seconds
func (s *Session) WindowSeconds() int64 {
	return int64(s.ValidationWindow / time.Second)
}

// Authenticated reports whether a registration grant has been issued for the session
func (s *Session) Authenticated() bool {
	return s.Grant != ""
}

// AuthenticationStatus describes the session a signature was checked against
type AuthenticationStatus struct {
	Address          string
	RequestTimeStamp int64
	Message          string
	ValidationWindow int64 // remaining seconds at verification time
	MessageSignature bool
}

// AuthenticationResult is the outcome of checking a signature against a session
type AuthenticationResult struct {
	RegisterStar bool
	Status       AuthenticationStatus
}

// NewAuthenticationResult derives a result from the session and the signature outcome
func NewAuthenticationResult(s *Session, verified bool, now time.Time) *AuthenticationResult {
	return &AuthenticationResult{
		RegisterStar: verified,
		Status: AuthenticationStatus{
			Address:          s.Address,
			RequestTimeStamp: s.IssuedAt,
			Message:          s.ChallengeMessage(),
			ValidationWindow: s.Remaining(now),
			MessageSignature: verified,
		},
	}
}

// Grant authorises one star registration for an address
type Grant struct {
	ID        string    // Unique identifier, consumed on use
	Address   string    // Address that proved ownership
	IssuedAt  time.Time // When the signature was verified
	ExpiresAt time.Time // End of the session's validation window
}
