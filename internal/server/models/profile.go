// Package models defines server-side data models persisted in the database.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"
)

const MaxDisplayNameLength = 150

// Configuration is a nested per-app key-value store: app name to a mapping
// of keys to arbitrary JSON values. It is persisted as a JSONB column.
type Configuration map[string]map[string]any

// DefaultConfiguration is assigned to freshly created profiles.
// Durations are minutes.
func DefaultConfiguration() Configuration {
	return Configuration{
		"fasting": {
			"min_fast_duration": 30,
			"max_fast_duration": 1440,
		},
	}
}

// Set merges value into the nested mapping, creating the app sub-mapping
// if absent.
func (c *Configuration) Set(appName, key string, value any) {
	if *c == nil {
		*c = Configuration{}
	}
	app, ok := (*c)[appName]
	if !ok {
		app = map[string]any{}
		(*c)[appName] = app
	}
	app[key] = value
}

// Get returns the value stored under (appName, key). The second return value
// reports whether the key was present.
func (c Configuration) Get(appName, key string) (any, bool) {
	app, ok := c[appName]
	if !ok {
		return nil, false
	}
	v, ok := app[key]
	return v, ok
}

// App returns the whole sub-mapping for appName.
func (c Configuration) App(appName string) (map[string]any, bool) {
	app, ok := c[appName]
	return app, ok
}

// Delete removes one key, pruning the app entry if it becomes empty.
// An empty key removes the whole app entry. Missing apps and keys are no-ops.
func (c Configuration) Delete(appName, key string) {
	app, ok := c[appName]
	if !ok {
		return
	}
	if key == "" {
		delete(c, appName)
		return
	}
	if _, ok := app[key]; !ok {
		return
	}
	delete(app, key)
	if len(app) == 0 {
		delete(c, appName)
	}
}

// Value implements driver.Valuer so Configuration can be written to a JSONB
// column directly.
func (c Configuration) Value() (driver.Value, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner for reading JSONB columns.
func (c *Configuration) Scan(src any) error {
	if src == nil {
		*c = Configuration{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported configuration source type %T", src)
	}
	return json.Unmarshal(data, c)
}

// Profile holds per-user extras: display name, avatar pointer, and the
// configuration store. Exactly one exists per user; it is created together
// with the user and removed by cascade.
type Profile struct {
	ID            string
	UserID        string
	DisplayName   string
	AvatarKey     string
	Configuration Configuration
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate checks field-level constraints before persistence.
func (p *Profile) Validate() error {
	var errs ValidationErrors

	if p.DisplayName == "" {
		errs = append(errs, &ValidationError{Field: "display_name", Message: "Display name is required."})
	} else if utf8.RuneCountInString(p.DisplayName) > MaxDisplayNameLength {
		errs = append(errs, &ValidationError{Field: "display_name", Message: "Display name cannot exceed 150 characters."})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
