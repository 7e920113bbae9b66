package form

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-sections/pkg/schema"
)

// ValidationError reports widget input that cannot be stored. The setting
// keeps its previous value.
type ValidationError struct {
	Key  string
	Kind schema.FieldKind
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("form: invalid %s value for %q: %v", e.Kind, e.Key, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Coerce converts raw widget input into the value stored for field. Raw
// input is a string from text controls or a bool/number/JSON value from
// structured transports. A nil result means the setting is cleared so the
// schema default applies again.
func Coerce(field schema.FieldSpec, raw any) (any, error) {
	value, err := coerce(field, raw)
	if err != nil {
		return nil, &ValidationError{Key: field.Key, Kind: field.Kind, Err: err}
	}
	return value, nil
}

// CoerceUntyped stores raw input for settings without a schema field.
func CoerceUntyped(raw any) any {
	if s, ok := raw.(string); ok {
		return s
	}
	return raw
}

func coerce(field schema.FieldSpec, raw any) (any, error) {
	switch field.Kind {
	case schema.KindNumber:
		return coerceNumber(field, raw)
	case schema.KindBoolean:
		return coerceBool(raw)
	case schema.KindArray, schema.KindObject:
		return coerceStructured(field.Kind, raw)
	case schema.KindEnum:
		return coerceEnum(field, raw)
	default:
		return coerceText(raw)
	}
}

func coerceNumber(field schema.FieldSpec, raw any) (any, error) {
	var n float64
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case float64:
		n = v
	case int:
		n = float64(v)
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, nil
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", v)
		}
		n = parsed
	default:
		return nil, fmt.Errorf("expected a number, got %T", raw)
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, errors.New("number must be finite")
	}
	if field.Min != nil && n < *field.Min {
		return nil, fmt.Errorf("%v is below the minimum %v", n, *field.Min)
	}
	if field.Max != nil && n > *field.Max {
		return nil, fmt.Errorf("%v is above the maximum %v", n, *field.Max)
	}
	return n, nil
}

func coerceBool(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "0", "false", "off", "no":
			return false, nil
		case "1", "true", "on", "yes":
			return true, nil
		}
		return nil, fmt.Errorf("%q is not a boolean", v)
	case float64:
		return v != 0, nil
	default:
		return nil, fmt.Errorf("expected a boolean, got %T", raw)
	}
}

func coerceStructured(kind schema.FieldKind, raw any) (any, error) {
	value := raw
	if text, ok := raw.(string); ok {
		if err := json.Unmarshal([]byte(text), &value); err != nil {
			return nil, err
		}
	}
	switch value.(type) {
	case []any:
		if kind == schema.KindArray {
			return value, nil
		}
		return nil, errors.New("expected a JSON object, got an array")
	case map[string]any:
		if kind == schema.KindObject {
			return value, nil
		}
		return nil, errors.New("expected a JSON array, got an object")
	default:
		if kind == schema.KindArray {
			return nil, errors.New("expected a JSON array")
		}
		return nil, errors.New("expected a JSON object")
	}
}

func coerceEnum(field schema.FieldSpec, raw any) (any, error) {
	text, err := coerceText(raw)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, nil
	}
	for _, option := range field.Options {
		if option.Value == text {
			return text, nil
		}
	}
	return nil, fmt.Errorf("%q is not one of the allowed options", text)
}

func coerceText(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("expected text, got %T", raw)
	}
}
