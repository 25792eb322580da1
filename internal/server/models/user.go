package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxUserNameLength = 255
	MaxTimezoneLength = 50
)

// User is an account identified by email. Name and timezone are optional
// extras; all time computation stays in UTC regardless of the timezone field.
type User struct {
	ID           string
	Email        string
	Name         string
	Timezone     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks field-level constraints before persistence.
func (u *User) Validate() error {
	var errs ValidationErrors

	email := strings.TrimSpace(u.Email)
	if email == "" {
		errs = append(errs, &ValidationError{Field: "email", Message: "Email is required."})
	} else if !strings.Contains(email, "@") {
		errs = append(errs, &ValidationError{Field: "email", Message: "Enter a valid email address."})
	}

	if utf8.RuneCountInString(u.Name) > MaxUserNameLength {
		errs = append(errs, &ValidationError{Field: "name", Message: "Name cannot exceed 255 characters."})
	}

	if utf8.RuneCountInString(u.Timezone) > MaxTimezoneLength {
		errs = append(errs, &ValidationError{Field: "timezone", Message: "Timezone cannot exceed 50 characters."})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// DefaultDisplayName is the profile display name assigned at registration:
// the user's name when present, otherwise the local part of the email.
func (u *User) DefaultDisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if i := strings.Index(u.Email, "@"); i > 0 {
		return u.Email[:i]
	}
	return u.Email
}
