package validator

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidPassword  = errors.New("password must be at least 8 characters")
	ErrInvalidSessionID = errors.New("invalid session id")
)

var (
	emailRegex     = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	sessionIDRegex = regexp.MustCompile(`^[A-Za-z0-9_:\-]{1,128}$`)
)

func ValidateEmail(email string) error {
	if len(email) > 254 || !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 || strings.TrimSpace(password) == "" {
		return ErrInvalidPassword
	}
	return nil
}

// ValidateSessionID accepts the opaque chat identifiers front-ends send,
// e.g. numeric chat ids or "tg:12345".
func ValidateSessionID(sessionID string) error {
	if !sessionIDRegex.MatchString(sessionID) {
		return ErrInvalidSessionID
	}
	return nil
}
