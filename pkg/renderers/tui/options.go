package tui

import (
	"io"
	"log/slog"
)

// Theme captures optional formatting hints applied when printing messages.
// Keep minimal to avoid coupling editor logic to ANSI specifics.
type Theme struct {
	InfoPrefix    string
	SuccessPrefix string
	WarningPrefix string
	ErrorPrefix   string
}

// DefaultTheme uses plain ASCII markers.
func DefaultTheme() Theme {
	return Theme{
		InfoPrefix:    "-",
		SuccessPrefix: "+",
		WarningPrefix: "!",
		ErrorPrefix:   "x",
	}
}

// Option configures the terminal editor.
type Option func(*Editor)

// WithPromptDriver overrides the prompt driver used by the editor.
func WithPromptDriver(driver PromptDriver) Option {
	return func(e *Editor) {
		if driver != nil {
			e.driver = driver
		}
	}
}

// WithOutput sets where the default survey driver prints messages.
func WithOutput(out io.Writer) Option {
	return func(e *Editor) {
		if out != nil {
			e.out = out
		}
	}
}

// WithTheme applies optional message prefixes.
func WithTheme(theme Theme) Option {
	return func(e *Editor) {
		e.theme = theme
	}
}

// WithLogger sets the logger used for dispatch failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithImagePicker enables the "Choose image" action on image fields.
func WithImagePicker(picker ImagePicker) Option {
	return func(e *Editor) {
		e.images = picker
	}
}
