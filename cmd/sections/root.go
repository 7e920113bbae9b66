package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	theme "github.com/goliatone/go-theme"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/goliatone/go-sections/internal/config"
	"github.com/goliatone/go-sections/internal/logging"
	"github.com/goliatone/go-sections/pkg/editor"
	"github.com/goliatone/go-sections/pkg/gateway"
	"github.com/goliatone/go-sections/pkg/render"
	"github.com/goliatone/go-sections/pkg/renderers/html"
	"github.com/goliatone/go-sections/pkg/renderers/tui"
	"github.com/goliatone/go-sections/pkg/schema"
	"github.com/goliatone/go-sections/pkg/store"
)

// app carries what every subcommand needs once the configuration has been
// resolved.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	configFile string
	cfg        *config.Config
	logger     *slog.Logger

	// driver replaces the interactive prompts of "edit" when set.
	driver tui.PromptDriver
}

func newRootCommand(in io.Reader, out, errOut io.Writer) *cobra.Command {
	return newRoot(&app{in: in, out: out, errOut: errOut})
}

func newRoot(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "sections",
		Short: "Edit page templates composed of sections and blocks",
		Long: `sections edits page templates: ordered lists of sections whose settings
and nested blocks are described by a catalog of section type schemas.

Configuration is read from --config, SECTIONS_CONFIG_FILE or ./sections.yaml,
then overridden by SECTIONS_<SECTION>_<KEY> environment variables and flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default ./sections.yaml, or SECTIONS_CONFIG_FILE)")
	flags.String("store", config.DriverFS, "template store driver (fs, redis)")
	flags.String("templates-dir", "templates", "directory of template documents for the fs store")
	flags.String("redis-url", "", "redis connection url for the redis store")
	flags.String("schemas-dir", "sections", "directory of section type schemas")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		pf := cmd.Flags()
		cfg, err := config.Load(
			config.WithFile(a.configFile),
			config.WithFlag("store.driver", changed(pf.Lookup("store"))),
			config.WithFlag("store.templates_dir", changed(pf.Lookup("templates-dir"))),
			config.WithFlag("store.redis_url", changed(pf.Lookup("redis-url"))),
			config.WithFlag("schemas.dir", changed(pf.Lookup("schemas-dir"))),
			config.WithFlag("log.level", changed(pf.Lookup("log-level"))),
			config.WithFlag("log.format", changed(pf.Lookup("log-format"))),
			config.WithFlag("server.addr", changed(pf.Lookup("addr"))),
			config.WithFlag("schemas.watch", changed(pf.Lookup("watch"))),
		)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logCfg := cfg.Logging()
		logCfg.Output = a.errOut
		logger, err := logging.New(logCfg)
		if err != nil {
			return err
		}
		a.cfg = cfg
		a.logger = logger
		if cfg.File != "" {
			logger.Debug("config loaded", "file", cfg.File)
		}
		return nil
	}

	root.AddCommand(
		newServeCommand(a),
		newEditCommand(a),
		newListCommand(a),
		newRenderCommand(a),
		newValidateCommand(a),
		newNormalizeCommand(a),
	)
	return root
}

// openTemplates opens the configured template store. The returned close
// function is never nil.
func (a *app) openTemplates(ctx context.Context) (store.TemplateStore, func() error, error) {
	logger := logging.Component(a.logger, "store")
	switch a.cfg.Store.Driver {
	case config.DriverRedis:
		rs, err := store.NewRedisStore(ctx, a.cfg.Store.RedisURL,
			store.WithPrefix(a.cfg.Store.RedisPrefix),
			store.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, err
		}
		return rs, rs.Close, nil
	default:
		return store.NewFileStore(a.cfg.Store.TemplatesDir, store.WithLogger(logger)), func() error { return nil }, nil
	}
}

func (a *app) schemaStore() *schema.FileStore {
	return schema.NewFileStore(os.DirFS(a.cfg.Schemas.Dir), schema.WithLogger(logging.Component(a.logger, "schema")))
}

// localGateway serves templates and schemas in-process.
func (a *app) localGateway(ctx context.Context) (*gateway.Local, func() error, error) {
	templates, closeFn, err := a.openTemplates(ctx)
	if err != nil {
		return nil, nil, err
	}
	return gateway.NewLocal(templates, a.schemaStore()), closeFn, nil
}

func (a *app) editorOptions() []editor.Option {
	return []editor.Option{
		editor.WithLogger(logging.Component(a.logger, "editor")),
		editor.WithMessageTTL(a.cfg.Editor.MessageTTL),
		editor.WithConfirmDiscard(a.cfg.Editor.ConfirmDiscard),
	}
}

// themeConfig derives the page theme from the theme.* settings, or nil
// when none are set.
func (a *app) themeConfig() *theme.RendererConfig {
	t := a.cfg.Theme
	if t.Name == "" && t.Stylesheet == "" && len(t.Tokens) == 0 {
		return nil
	}
	name := t.Name
	if name == "" {
		name = "custom"
	}
	manifest := &theme.Manifest{
		Name:   name,
		Tokens: t.Tokens,
	}
	if t.Stylesheet != "" {
		manifest.Assets = theme.Assets{Files: map[string]string{"stylesheet": t.Stylesheet}}
	}
	return render.ThemeConfig(manifest, t.Variant, html.DefaultPartials())
}

// changed returns flag only when it was set on the command line, so
// unset flags never mask file or environment values.
func changed(flag *pflag.Flag) *pflag.Flag {
	if flag == nil || !flag.Changed {
		return nil
	}
	return flag
}
