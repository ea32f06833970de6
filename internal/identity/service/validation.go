package service

import (
	"errors"
	"regexp"
	"strings"
)

// Usernames follow the common identity-store default character set.
const allowedUsernameChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-._@+"

const minPasswordLength = 6

// bcrypt only accepts the first 72 bytes of a password.
const maxPasswordBytes = 72

var simpleEmail = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func validateUsername(username string) error {
	if len(username) > 256 {
		return errors.New("username must be at most 256 characters")
	}
	for _, r := range username {
		if !strings.ContainsRune(allowedUsernameChars, r) {
			return errors.New("username contains invalid characters")
		}
	}
	return nil
}

func validateEmail(email string) error {
	if !simpleEmail.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return errors.New("password must be at least 6 characters")
	}
	if len(password) > maxPasswordBytes {
		return errors.New("password must be at most 72 bytes")
	}
	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasNumber = true
		default:
			hasSymbol = true
		}
	}
	if !hasUpper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return errors.New("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return errors.New("password must contain at least one number")
	}
	if !hasSymbol {
		return errors.New("password must contain at least one symbol")
	}
	return nil
}
