package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/encoding/htmlindex"
)

// ValidationError is a single invalid setting.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every invalid setting found by Validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels lists the accepted log.level values.
func ValidLogLevels() []string { return []string{"debug", "info", "warn", "error"} }

// ValidLogFormats lists the accepted log.format values.
func ValidLogFormats() []string { return []string{"text", "json"} }

// Validate reports every invalid value in c.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	timeouts := []struct {
		field string
		value time.Duration
	}{
		{"timeouts.quick", c.Timeouts.Quick},
		{"timeouts.local", c.Timeouts.Local},
		{"timeouts.network", c.Timeouts.Network},
	}
	for _, t := range timeouts {
		if t.value <= 0 {
			errs = append(errs, ValidationError{Field: t.field, Value: t.value, Message: "must be positive"})
		}
	}
	if c.CacheTTL < 0 {
		errs = append(errs, ValidationError{Field: "cache_ttl", Value: c.CacheTTL, Message: "must be non-negative"})
	}
	if c.WatchDebounce < 0 {
		errs = append(errs, ValidationError{Field: "watch_debounce", Value: c.WatchDebounce, Message: "must be non-negative"})
	}

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Log.Level)) {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Value:   c.Log.Level,
			Message: "must be one of: " + strings.Join(ValidLogLevels(), ", "),
		})
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Log.Format)) {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Value:   c.Log.Format,
			Message: "must be one of: " + strings.Join(ValidLogFormats(), ", "),
		})
	}

	for i, pattern := range c.ExcludedFiles {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("excluded_files[%d]", i),
				Value:   pattern,
				Message: "invalid glob pattern",
			})
		}
	}
	for i, rule := range c.FileEncodings {
		field := fmt.Sprintf("file_encodings[%d]", i)
		if !doublestar.ValidatePattern(rule.Pattern) {
			errs = append(errs, ValidationError{Field: field + ".pattern", Value: rule.Pattern, Message: "invalid glob pattern"})
		}
		if _, err := htmlindex.Get(rule.Encoding); err != nil {
			errs = append(errs, ValidationError{Field: field + ".encoding", Value: rule.Encoding, Message: "unknown encoding label"})
		}
	}
	return errs
}
