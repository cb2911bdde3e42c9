package validation

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sakif/blog-platform/internal/apperror"
)

const (
	MaxUsernameLength = 150
	MaxNameLength     = 150
	MinPasswordLength = 8
	MaxPasswordBytes  = 72 // bcrypt limit
)

// Profile is a validated set of user-editable account fields.
type Profile struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// Username accepts letters, digits and @ . + - _ only.
func Username(raw string) (string, error) {
	username := strings.TrimSpace(raw)
	if username == "" {
		return "", apperror.ValidationFailed("username", "username is required")
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return "", apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("@.+-_", r) {
			continue
		}
		return "", apperror.ValidationFailed("username",
			"username may contain only letters, digits and @/./+/-/_")
	}
	return username, nil
}

// Email requires a bare address ("a@b.c"), no display name.
func Email(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", apperror.ValidationFailed("email", "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apperror.ValidationFailed("email", "enter a valid email address")
	}
	return email, nil
}

// Password checks a new password and its confirmation.
func Password(password, confirm string) error {
	if len(password) < MinPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(password) > MaxPasswordBytes {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", MaxPasswordBytes))
	}
	if strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return apperror.ValidationFailed("password", "password is entirely numeric")
	}
	if password != confirm {
		return apperror.ValidationFailed("confirm", "passwords do not match")
	}
	return nil
}

// ProfileFields validates the editable profile form.
func ProfileFields(username, email, firstName, lastName string) (Profile, error) {
	u, err := Username(username)
	if err != nil {
		return Profile{}, err
	}
	e, err := Email(email)
	if err != nil {
		return Profile{}, err
	}
	first := CollapseWhitespace(firstName)
	last := CollapseWhitespace(lastName)
	if utf8.RuneCountInString(first) > MaxNameLength {
		return Profile{}, apperror.ValidationFailed("firstName", "first name is too long")
	}
	if utf8.RuneCountInString(last) > MaxNameLength {
		return Profile{}, apperror.ValidationFailed("lastName", "last name is too long")
	}
	return Profile{Username: u, Email: e, FirstName: first, LastName: last}, nil
}
