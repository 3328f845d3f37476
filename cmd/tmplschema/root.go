package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goliatone/go-tmplschema"
	"github.com/goliatone/go-tmplschema/pkg/prompt"
	"github.com/goliatone/go-tmplschema/pkg/provider"
)

const envPrefix = "TMPLSCHEMA"

// app carries the state shared by every subcommand.
type app struct {
	v       *viper.Viper
	out     io.Writer
	errOut  io.Writer
	cfgFile string
	logger  zerolog.Logger
	driver  prompt.Driver
}

func newApp(out, errOut io.Writer) *app {
	return &app{
		v:      viper.New(),
		out:    out,
		errOut: errOut,
		logger: zerolog.Nop(),
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tmplschema",
		Short: "Compile annotated Mustache templates into JSON-Schema and render them",
		Long: `tmplschema reads Mustache templates (.mst) or YAML template documents
(.yml/.yaml), infers the JSON-Schema of their parameters and renders them.

Configuration comes from flags, TMPLSCHEMA_* environment variables and an
optional tmplschema.yaml file in the working directory:

  schemas       directory of <name>.json type libraries
  data          directory of <name>.data files
  log_level     debug, info, warn or error
  http_timeout  timeout for fetch and forward requests (e.g. 30s)

Examples:
  tmplschema schema service.yml
  tmplschema render service.yml --set port=8443 --set use_tls=true
  tmplschema validate templates/*.mst
  tmplschema prompt service.yml`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is ./tmplschema.yaml)")
	flags.String("schemas", "", "directory holding type schema libraries")
	flags.String("data", "", "directory holding data files")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.Duration("http-timeout", 30*time.Second, "timeout for HTTP fetch and forward")

	_ = a.v.BindPFlag("schemas", flags.Lookup("schemas"))
	_ = a.v.BindPFlag("data", flags.Lookup("data"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("http_timeout", flags.Lookup("http-timeout"))

	root.AddCommand(
		a.schemaCmd(),
		a.renderCmd(),
		a.validateCmd(),
		a.promptCmd(),
		a.saveCmd(),
	)
	return root
}

// initConfig reads the config file and environment, then builds the logger.
func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigType("yaml")
		a.v.SetConfigName("tmplschema")
	}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	level, err := zerolog.ParseLevel(a.v.GetString("log_level"))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", a.v.GetString("log_level"), err)
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: a.errOut, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug().Str("file", used).Msg("using config file")
	}
	return nil
}

// options builds the template options from configuration.
func (a *app) options() []tmplschema.Option {
	opts := []tmplschema.Option{
		tmplschema.WithLogger(a.logger),
		tmplschema.WithHTTPClient(&http.Client{Timeout: a.v.GetDuration("http_timeout")}),
	}
	return append(opts, tmplschema.NewDirProviders(
		a.v.GetString("schemas"),
		a.v.GetString("data"),
		provider.WithLogger(a.logger),
	)...)
}

func (a *app) load(ctx context.Context, file string) (*tmplschema.Template, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}
	tmpl, err := tmplschema.LoadFile(ctx, os.DirFS(filepath.Dir(abs)), filepath.Base(abs), a.options()...)
	if err != nil {
		return nil, err
	}
	a.logger.Debug().Str("file", file).Str("hash", tmpl.Source.Hash).Msg("template loaded")
	return tmpl, nil
}

func (a *app) promptDriver() prompt.Driver {
	if a.driver != nil {
		return a.driver
	}
	return prompt.NewSurveyDriver()
}
