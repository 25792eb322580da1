package models

import "strings"

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors aggregates per-field validation failures so a form or API
// response can surface all of them at once.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, v := range e {
		msgs = append(msgs, v.Error())
	}
	return strings.Join(msgs, "; ")
}

// ByField returns the message for the given field, or "" if the field passed.
func (e ValidationErrors) ByField(field string) string {
	for _, v := range e {
		if v.Field == field {
			return v.Message
		}
	}
	return ""
}

// Fields returns the failures as a field-to-message map, the shape API
// responses use. Later entries win if a field appears twice.
func (e ValidationErrors) Fields() map[string]string {
	m := make(map[string]string, len(e))
	for _, v := range e {
		m[v.Field] = v.Message
	}
	return m
}
