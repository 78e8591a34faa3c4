package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// SecurityError represents a security validation error
type SecurityError struct {
	Type   string
	Field  string
	Detail string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("security validation failed [%s]: %s - %s", e.Type, e.Field, e.Detail)
}

// Identifier validation limits
const (
	MaxFieldNameLength      = 255
	MaxCollectionNameLength = 256
	MaxNestedDepth          = 32
	MaxExpressionLength     = 4096
)

var (
	identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	bindNamePattern   = regexp.MustCompile(`^@?[a-zA-Z0-9_]+$`)
	collectionPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)
)

// Fragments that would let a verbatim clause escape into a new statement part.
var dangerousFragments = []string{"//", "/*", "*/", ";", "`", "\x00"}

// ValidateFieldName validates a storage column path that is interpolated into AQL
// after the iteration alias (e.g. "address.city").
func ValidateFieldName(field string) error {
	if field == "" {
		return &SecurityError{
			Type:   "InvalidField",
			Field:  field,
			Detail: "field name cannot be empty",
		}
	}

	if len(field) > MaxFieldNameLength {
		return &SecurityError{
			Type:   "InvalidField",
			Field:  field,
			Detail: fmt.Sprintf("field name exceeds maximum length of %d characters", MaxFieldNameLength),
		}
	}

	parts := strings.Split(field, ".")
	if len(parts) > MaxNestedDepth {
		return &SecurityError{
			Type:   "InvalidField",
			Field:  field,
			Detail: fmt.Sprintf("nested field depth exceeds maximum of %d", MaxNestedDepth),
		}
	}

	for _, part := range parts {
		if err := validateFieldPart(part); err != nil {
			return &SecurityError{
				Type:   "InvalidField",
				Field:  field,
				Detail: fmt.Sprintf("invalid field part '%s': %s", part, err.Error()),
			}
		}
	}

	return nil
}

func validateFieldPart(part string) error {
	if part == "" {
		return fmt.Errorf("field part cannot be empty")
	}
	if !identifierPattern.MatchString(part) {
		return fmt.Errorf("field part must start with letter or underscore and contain only alphanumeric characters and underscores")
	}
	return nil
}

// ValidateCollectionName validates a collection name against the ArangoDB
// naming rules: a letter or underscore followed by letters, digits,
// underscores and dashes. Names with dashes must be quoted in AQL.
func ValidateCollectionName(name string) error {
	if name == "" || len(name) > MaxCollectionNameLength {
		return &SecurityError{
			Type:   "InvalidCollectionName",
			Field:  name,
			Detail: fmt.Sprintf("collection name must be 1-%d characters", MaxCollectionNameLength),
		}
	}
	if !collectionPattern.MatchString(name) {
		return &SecurityError{
			Type:   "InvalidCollectionName",
			Field:  name,
			Detail: "collection name can only contain letters, numbers, underscores and dashes",
		}
	}
	return nil
}

// ValidateDirection validates a sort direction and returns it normalised.
// An empty direction sorts ascending.
func ValidateDirection(dir string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(dir)) {
	case "", "ASC":
		return "ASC", nil
	case "DESC":
		return "DESC", nil
	default:
		return "", &SecurityError{
			Type:   "InvalidDirection",
			Field:  dir,
			Detail: "sort direction must be ASC or DESC",
		}
	}
}

// ValidateBindName validates a named bind parameter supplied to a raw query.
func ValidateBindName(name string) error {
	if !bindNamePattern.MatchString(name) {
		return &SecurityError{
			Type:   "InvalidBindName",
			Field:  name,
			Detail: "bind parameter names can only contain letters, numbers and underscores",
		}
	}
	return nil
}

// ValidateExpression validates a clause that is passed through verbatim (COLLECT).
func ValidateExpression(expression string) error {
	if len(expression) > MaxExpressionLength {
		return &SecurityError{
			Type:   "InvalidExpression",
			Field:  "expression",
			Detail: fmt.Sprintf("expression exceeds maximum length of %d characters", MaxExpressionLength),
		}
	}

	for _, r := range expression {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return &SecurityError{
				Type:   "InvalidExpression",
				Field:  "expression",
				Detail: "expression contains control characters",
			}
		}
	}

	for _, fragment := range dangerousFragments {
		if strings.Contains(expression, fragment) {
			return &SecurityError{
				Type:   "InjectionAttempt",
				Field:  "expression",
				Detail: fmt.Sprintf("expression contains dangerous pattern: %q", fragment),
			}
		}
	}

	return nil
}
