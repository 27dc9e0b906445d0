package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	defender "github.com/reoring/defender"
	"github.com/reoring/defender/i18n"
	"github.com/reoring/defender/schemafile"
)

const (
	envPrefix      = "DEFENDER"
	configFileName = "defender"

	// Config keys.
	cfgKeySchemas  = "schemas"
	cfgKeyLogLevel = "log_level"
	cfgKeyLang     = "lang"
	cfgKeyOutput   = "output"

	defaultLogLevel = "warn"
	defaultLang     = "en"
	defaultOutput   = "text"
)

// app is the state shared by all subcommands. It is filled in by the root
// command's PersistentPreRunE.
type app struct {
	in       io.Reader
	out      io.Writer
	errOut   io.Writer
	cfgFile  string
	v        *viper.Viper
	logger   zerolog.Logger
	registry *defender.Registry
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut, v: viper.New()}

	root := &cobra.Command{
		Use:   "defender",
		Short: "Validate JSON documents against declarative schemas",
		Long: `defender loads schema definitions from YAML files and checks JSON
documents against them.

Configuration is read from defender.yaml (current directory or --config),
DEFENDER_* environment variables and flags, in increasing priority.

Examples:
  defender list --schemas schemas.yaml
  defender validate user user.json --schemas schemas.yaml
  defender jsonschema user --schemas schemas.yaml`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", "", "config file (default: ./defender.yaml)")
	flags.StringSlice("schemas", nil, "YAML schema files to load")
	flags.String("log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	flags.String("lang", defaultLang, "message language (en, ja)")
	flags.StringP("output", "o", defaultOutput, "output format (text, json)")
	_ = a.v.BindPFlag(cfgKeySchemas, flags.Lookup("schemas"))
	_ = a.v.BindPFlag(cfgKeyLogLevel, flags.Lookup("log-level"))
	_ = a.v.BindPFlag(cfgKeyLang, flags.Lookup("lang"))
	_ = a.v.BindPFlag(cfgKeyOutput, flags.Lookup("output"))

	root.AddCommand(
		newValidateCmd(a),
		newJSONSchemaCmd(a),
		newListCmd(a),
		newVersionCmd(a),
	)
	return root
}

// setup reads configuration, sets up logging and message language, and loads
// the configured schema files.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	if err := a.loadConfig(); err != nil {
		return err
	}
	a.logger = newLogger(a.errOut, a.v.GetString(cfgKeyLogLevel))
	i18n.SetLanguage(a.v.GetString(cfgKeyLang))

	a.registry = defender.NewRegistry(defender.WithLogger(a.logger))
	for _, path := range a.v.GetStringSlice(cfgKeySchemas) {
		schemas, err := schemafile.LoadFile(a.registry, path, schemafile.WithLogger(a.logger))
		if err != nil {
			return err
		}
		a.logger.Info().Str("file", path).Int("schemas", len(schemas)).Msg("schema file loaded")
	}
	return nil
}

// loadConfig reads defender.yaml with Viper. A missing default config file is
// not an error; a missing explicit --config file is.
func (a *app) loadConfig() error {
	v := a.v
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetDefault(cfgKeyLang, defaultLang)
	v.SetDefault(cfgKeyOutput, defaultOutput)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// newLogger writes human readable logs to w, colored only on a terminal.
func newLogger(w io.Writer, levelStr string) zerolog.Logger {
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil || levelStr == "" {
		level = zerolog.WarnLevel
	}
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: noColor}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func (a *app) schema(name string) (*defender.Schema, error) {
	s, err := a.registry.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w (loaded: %s)", err, strings.Join(a.registry.Names(), ", "))
	}
	return s, nil
}

func (a *app) jsonOutput() bool {
	return a.v.GetString(cfgKeyOutput) == "json"
}
