package validation

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Validator validates structs
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates a struct using `validate` field tags.
// Supported rules: required, email, slug, min=N, max=N, oneof=a b c.
func (v *Validator) Validate(s interface{}) error {
	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return fmt.Errorf("validate expects a struct")
	}

	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		tag := fieldType.Tag.Get("validate")

		if tag == "" {
			continue
		}

		if err := v.validateField(field, tag); err != nil {
			return fmt.Errorf("%s: %w", fieldType.Name, err)
		}
	}

	return nil
}

// validateField validates a single field
func (v *Validator) validateField(field reflect.Value, tag string) error {
	// Optional pointer fields are only checked when set.
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			if strings.HasPrefix(tag, "required") {
				return fmt.Errorf("field is required")
			}
			return nil
		}
		field = field.Elem()
	}

	rules := strings.Split(tag, ",")

	for _, rule := range rules {
		parts := strings.SplitN(rule, "=", 2)
		ruleName := parts[0]

		switch ruleName {
		case "required":
			if field.IsZero() {
				return fmt.Errorf("field is required")
			}

		case "email":
			if field.Kind() == reflect.String && field.String() != "" {
				email := field.String()
				at := strings.Index(email, "@")
				if at <= 0 || at == len(email)-1 || !strings.Contains(email[at:], ".") {
					return fmt.Errorf("invalid email format")
				}
			}

		case "slug":
			if field.Kind() == reflect.String && field.String() != "" {
				if !isSlug(field.String()) {
					return fmt.Errorf("must be lowercase letters, digits and hyphens")
				}
			}

		case "min":
			if len(parts) < 2 {
				continue
			}
			n, err := strconv.Atoi(parts[1])
			if err != nil {
				continue
			}
			if err := checkMin(field, n); err != nil {
				return err
			}

		case "max":
			if len(parts) < 2 {
				continue
			}
			n, err := strconv.Atoi(parts[1])
			if err != nil {
				continue
			}
			if err := checkMax(field, n); err != nil {
				return err
			}

		case "oneof":
			if len(parts) < 2 {
				continue
			}
			if field.Kind() == reflect.String && field.String() != "" {
				allowed := strings.Fields(parts[1])
				found := false
				for _, a := range allowed {
					if field.String() == a {
						found = true
						break
					}
				}
				if !found {
					return fmt.Errorf("must be one of: %s", strings.Join(allowed, ", "))
				}
			}
		}
	}

	return nil
}

func checkMin(field reflect.Value, n int) error {
	switch field.Kind() {
	case reflect.String:
		if field.String() != "" && len(field.String()) < n {
			return fmt.Errorf("minimum length is %d", n)
		}
	case reflect.Slice, reflect.Map:
		if field.Len() < n {
			return fmt.Errorf("minimum length is %d", n)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Int() < int64(n) {
			return fmt.Errorf("minimum value is %d", n)
		}
	}
	return nil
}

func checkMax(field reflect.Value, n int) error {
	switch field.Kind() {
	case reflect.String:
		if len(field.String()) > n {
			return fmt.Errorf("maximum length is %d", n)
		}
	case reflect.Slice, reflect.Map:
		if field.Len() > n {
			return fmt.Errorf("maximum length is %d", n)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Int() > int64(n) {
			return fmt.Errorf("maximum value is %d", n)
		}
	}
	return nil
}

// isSlug reports whether s is a valid site slug: lowercase ASCII
// letters, digits and interior hyphens.
func isSlug(s string) bool {
	if s == "" || strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return false
		}
	}
	return true
}
