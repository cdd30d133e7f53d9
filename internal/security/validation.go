package security

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

// ValidationService provides centralized input validation.
// All methods return errors whose text is safe to show to users.
type ValidationService struct {
	config *SecurityConfig
}

// NewValidationService creates a new validation service with security configuration.
func NewValidationService(config *SecurityConfig) *ValidationService {
	return &ValidationService{
		config: config,
	}
}

// ValidateRequired checks that value is present and not just whitespace.
// fieldName is used verbatim, e.g. "Name" gives "Name is required".
func (v *ValidationService) ValidateRequired(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidateLength checks value's rune count is within [min, max].
func (v *ValidationService) ValidateLength(fieldName string, value string, min, max int) error {
	length := utf8.RuneCountInString(value)

	if length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}

	if length > max {
		return fmt.Errorf("%s must be %d characters or less", fieldName, max)
	}

	return nil
}

// ValidateName validates an organization or project name.
func (v *ValidationService) ValidateName(name string) error {
	if err := v.ValidateRequired("Name", name); err != nil {
		return err
	}
	return v.ValidateLength("Name", strings.TrimSpace(name), 1, v.config.MaxNameLength)
}

// ValidateTitle validates a document title.
func (v *ValidationService) ValidateTitle(title string) error {
	if err := v.ValidateRequired("Title", title); err != nil {
		return err
	}
	return v.ValidateLength("Title", strings.TrimSpace(title), 1, v.config.MaxTitleLength)
}

// ValidateFunder validates an optional funder name. Empty is allowed.
func (v *ValidationService) ValidateFunder(funder string) error {
	return v.ValidateLength("Funder", strings.TrimSpace(funder), 0, v.config.MaxFunderLength)
}

// ValidateContent enforces the document body size limit.
func (v *ValidationService) ValidateContent(content string) error {
	if len(content) > v.config.MaxContentSize {
		return fmt.Errorf("Content must be %d bytes or less", v.config.MaxContentSize)
	}
	return nil
}

// ValidateDate validates an ISO 8601 calendar date ("2025-01-15").
func (v *ValidationService) ValidateDate(fieldName, dateStr string) error {
	if _, err := time.Parse(time.DateOnly, dateStr); err != nil {
		return fmt.Errorf("%s must be a date in YYYY-MM-DD format", fieldName)
	}
	return nil
}

// ValidateProjectStatus checks status is one of allowed.
func (v *ValidationService) ValidateProjectStatus(status string, allowed []string) error {
	for _, s := range allowed {
		if status == s {
			return nil
		}
	}
	return fmt.Errorf("Status must be one of: %s", strings.Join(allowed, ", "))
}

// ValidateSortOrder rejects negative positions.
func (v *ValidationService) ValidateSortOrder(order int) error {
	if order < 0 {
		return fmt.Errorf("sort_order must not be negative")
	}
	return nil
}

// ValidateUUID checks value is a canonical UUID.
func (v *ValidationService) ValidateUUID(fieldName, value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return fmt.Errorf("%s must be a valid id", fieldName)
	}
	return nil
}

// ValidateOrder checks a reorder request: non-empty, bounded, every id a
// UUID and no id repeated.
func (v *ValidationService) ValidateOrder(order []string) error {
	if len(order) == 0 {
		return fmt.Errorf("Order array is required")
	}
	if len(order) > v.config.MaxReorderLength {
		return fmt.Errorf("Order array must have %d entries or less", v.config.MaxReorderLength)
	}

	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		if err := v.ValidateUUID("Order entry", id); err != nil {
			return err
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("Order array contains %s more than once", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// SanitizeString strips control characters (keeping newline and tab) and
// trims surrounding whitespace.
func (v *ValidationService) SanitizeString(input string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(input, ""))
}
