package form

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-sections/pkg/schema"
)

func renderWidget(field schema.FieldSpec, target Target, settings map[string]any) Widget {
	value, stored := settings[field.Key]
	if !stored {
		value = field.Default
	}
	w := Widget{
		Field:  field.Kind,
		Target: target,
		Label:  field.Label(),
		Help:   field.Description,
		Value:  value,
		Text:   DisplayText(value, field.Kind),
	}

	switch field.Kind {
	case schema.KindImage:
		w.Kind = WidgetImage
		w.Picker = true
		if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
			w.Preview = s
			w.Clearable = true
		}
	case schema.KindNumber:
		w.Kind = WidgetNumber
		w.Min, w.Max = field.Min, field.Max
		step := 1.0
		if field.Step != nil {
			step = *field.Step
		}
		w.Step = &step
	case schema.KindBoolean:
		w.Kind = WidgetCheckbox
		w.Checked = truthy(value)
	case schema.KindColor:
		w.Kind = WidgetColor
	case schema.KindEnum:
		w.Kind = WidgetSelect
		for _, option := range field.Options {
			label := option.Label
			if label == "" {
				label = option.Value
			}
			w.Options = append(w.Options, Choice{Value: option.Value, Label: label, Selected: option.Value == w.Text})
		}
	case schema.KindArray, schema.KindObject:
		w.Kind = WidgetJSON
	default:
		w.Kind = WidgetText
		if field.Multiline {
			w.Kind = WidgetTextArea
		}
	}
	return w
}

// DisplayText formats a setting value for an input control. Structured
// kinds are shown as JSON indented with two spaces; absent structured
// values are shown as an empty array or object.
func DisplayText(value any, kind schema.FieldKind) string {
	if kind.Structured() {
		if value == nil {
			if kind == schema.KindArray {
				return "[]"
			}
			return "{}"
		}
		return prettyJSON(value)
	}
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case map[string]any, []any:
		return prettyJSON(v)
	default:
		return fmt.Sprint(v)
	}
}

func prettyJSON(value any) string {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(data)
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(v)
		return err == nil && b
	case float64:
		return v != 0
	default:
		return false
	}
}
