package html

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-sections/pkg/form"
	"github.com/goliatone/go-sections/pkg/render"
	rendertemplate "github.com/goliatone/go-sections/pkg/render/template"
	"github.com/goliatone/go-sections/pkg/render/template/pongo"
)

// Partial names a theme may override through RendererConfig.Partials.
const (
	PartialPage    = "page"
	PartialSection = "section"
	PartialBlock   = "block"
	PartialWidget  = "widget"
)

const defaultTitle = "Sections"

// DefaultPartials returns the template paths used when the theme does not
// override a partial. Pass it as fallbacks to render.ThemeConfig.
func DefaultPartials() map[string]string {
	return map[string]string{
		PartialPage:    "templates/page.html",
		PartialSection: "templates/partials/section.html",
		PartialBlock:   "templates/partials/block.html",
		PartialWidget:  "templates/partials/widget.html",
	}
}

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templatesDir     string
	templateRenderer rendertemplate.TemplateRenderer
	policy           *bluemonday.Policy
	stylesheet       string
	defaultStyles    bool
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk. Files there
// shadow the embedded bundle.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		cfg.templatesDir = strings.TrimSpace(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithPolicy replaces the policy used to sanitise field help text.
func WithPolicy(policy *bluemonday.Policy) Option {
	return func(cfg *config) {
		if policy != nil {
			cfg.policy = policy
		}
	}
}

// WithStylesheet links an external stylesheet from every page. A theme
// "stylesheet" asset takes precedence.
func WithStylesheet(href string) Option {
	return func(cfg *config) {
		cfg.stylesheet = strings.TrimSpace(href)
	}
}

// WithDefaultStyles inlines the embedded stylesheet.
func WithDefaultStyles() Option {
	return func(cfg *config) {
		cfg.defaultStyles = true
	}
}

// Renderer renders form descriptions as an HTML page whose controls post
// editor intents back to Options.Action.
type Renderer struct {
	templates     rendertemplate.TemplateRenderer
	policy        *bluemonday.Policy
	stylesheet    string
	defaultStyles bool
}

// New constructs the HTML renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}
	if cfg.policy == nil {
		cfg.policy = bluemonday.UGCPolicy()
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engineOpts := []pongo.Option{
			pongo.WithFS(cfg.templateFS),
			pongo.WithExtension(".html"),
		}
		if cfg.templatesDir != "" {
			if _, err := os.Stat(cfg.templatesDir); err != nil {
				return nil, fmt.Errorf("html renderer: templates dir: %w", err)
			}
			engineOpts = append(engineOpts, pongo.WithBaseDir(cfg.templatesDir))
		}
		engine, err := pongo.New(engineOpts...)
		if err != nil {
			return nil, fmt.Errorf("html renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}

	if err := renderer.GlobalContext(pageGlobals()); err != nil {
		return nil, fmt.Errorf("html renderer: template globals: %w", err)
	}

	return &Renderer{
		templates:     renderer,
		policy:        cfg.policy,
		stylesheet:    cfg.stylesheet,
		defaultStyles: cfg.defaultStyles,
	}, nil
}

func (r *Renderer) Name() string {
	return "html"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

func (r *Renderer) Render(_ context.Context, f form.Form, options render.Options) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("html renderer: template renderer is nil")
	}

	tree, err := formTree(f)
	if err != nil {
		return nil, fmt.Errorf("html renderer: %w", err)
	}
	r.decorate(tree)

	partials := DefaultPartials()
	data := map[string]any{
		"form":       tree,
		"title":      pageTitle(options.Title),
		"action":     options.Action,
		"hidden":     render.SortedHiddenFields(options.Hidden),
		"stylesheet": r.stylesheet,
	}
	if r.defaultStyles {
		data["inline_styles"] = defaultStylesheet()
	}
	if cfg := options.Theme; cfg != nil {
		for name, path := range cfg.Partials {
			if _, known := partials[name]; known && strings.TrimSpace(path) != "" {
				partials[name] = path
			}
		}
		if cfg.AssetURL != nil {
			if href := cfg.AssetURL("stylesheet"); href != "" {
				data["stylesheet"] = href
			}
		}
		data["css_vars"] = cssVariables(cfg.CSSVars)
		data["theme_name"] = cfg.Theme
		data["theme_variant"] = cfg.Variant
	}
	data["partials"] = partials

	result, err := r.templates.RenderTemplate(partials[PartialPage], data)
	if err != nil {
		return nil, fmt.Errorf("html renderer: render template: %w", err)
	}
	return []byte(result), nil
}

func pageTitle(title string) string {
	if trimmed := strings.TrimSpace(title); trimmed != "" {
		return trimmed
	}
	return defaultTitle
}

// Image picker button labels.
const (
	LabelSelectImage = "Select image"
	LabelRemoveImage = "Remove image"
)

// pageGlobals are the values every page render shares.
func pageGlobals() map[string]any {
	return map[string]any{
		"tabs":             tabs(),
		"no_section_types": form.NoSectionTypes,
		"image_labels":     map[string]any{"pick": LabelSelectImage, "clear": LabelRemoveImage},
	}
}

func tabs() []map[string]string {
	return []map[string]string{
		{"value": string(form.TabSettings), "label": "Settings"},
		{"value": string(form.TabBlocks), "label": "Blocks"},
	}
}

// formTree converts the form into the generic tree templates address by
// json tag names.
func formTree(f form.Form) (map[string]any, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encode form: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("decode form: %w", err)
	}
	return tree, nil
}

// decorate walks the tree and adds the values widget markup needs: the
// posted input name, a DOM id, numeric attribute text and sanitised help.
func (r *Renderer) decorate(node any) {
	switch v := node.(type) {
	case map[string]any:
		if target, ok := v["target"].(map[string]any); ok {
			if _, isWidget := v["kind"]; isWidget {
				r.decorateWidget(v, target)
			}
		}
		for _, child := range v {
			r.decorate(child)
		}
	case []any:
		for _, child := range v {
			r.decorate(child)
		}
	}
}

func (r *Renderer) decorateWidget(widget, target map[string]any) {
	scope, _ := target["scope"].(string)
	widget["input_name"] = "input"
	if scope == string(form.ScopeTemplate) {
		widget["input_name"] = "value"
	}

	parts := []string{"w", scope}
	for _, key := range []string{"section_id", "block_id", "key"} {
		if s, ok := target[key].(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	widget["dom_id"] = domID(strings.Join(parts, "-"))

	for _, key := range []string{"min", "max", "step"} {
		if n, ok := widget[key].(float64); ok {
			widget[key+"_text"] = strconv.FormatFloat(n, 'f', -1, 64)
		}
	}
	if help, ok := widget["help"].(string); ok && help != "" {
		widget["help"] = strings.TrimSpace(r.policy.Sanitize(help))
	}
}

var domIDPattern = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func domID(raw string) string {
	return domIDPattern.ReplaceAllString(raw, "_")
}

var cssVarName = regexp.MustCompile(`^--[A-Za-z0-9_-]+$`)

type cssVar struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// cssVariables returns the theme variables sorted by name. Names that are
// not custom property identifiers are dropped and values lose characters
// that could close the declaration or the style element.
func cssVariables(vars map[string]string) []cssVar {
	out := make([]cssVar, 0, len(vars))
	for name, value := range vars {
		if !cssVarName.MatchString(name) {
			continue
		}
		cleaned := strings.Map(func(r rune) rune {
			switch r {
			case '<', '>', '{', '}', ';':
				return -1
			}
			return r
		}, value)
		out = append(out, cssVar{Name: name, Value: strings.TrimSpace(cleaned)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
