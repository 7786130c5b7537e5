// Package cmd provides the command-line interface for greeter.
//
// Configuration System:
//
//	Settings come from several sources with clear precedence:
//	1. Command-line flags (--port, --locale, etc.) - highest priority
//	2. Individual environment variables (GREETER_SERVER_PORT, etc.)
//	3. The configuration file named by --config or GREETER_CONFIG_FILE
//	4. .greeter.yml in the current directory
//	5. Built-in defaults - lowest priority
//
// Environment Variables:
//
//	GREETER_CONFIG_FILE: Path to custom configuration file
//	GREETER_SERVER_PORT: Override server port
//	GREETER_WIDGET_LOCALE: Override the default locale
//	GREETER_WIDGET_CATALOG_FILE: YAML file overriding the built-in strings
//	And more following the GREETER_<SECTION>_<OPTION> pattern.
//
// A .env file in the working directory is loaded before any of this runs.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/greeter/internal/config"
	"github.com/conneroisu/greeter/internal/errors"
	"github.com/conneroisu/greeter/internal/logging"
)

const defaultConfigFile = ".greeter.yml"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "greeter",
	Short: "A localized greeting widget for host applications",
	Long: `greeter renders a small greeting panel ("Hello, {name}!") for host
applications that embed it, and serves it over HTTP with a websocket bridge
for hosts that drive it with properties.

Quick Start:
  greeter serve                     Start the widget server
  greeter render --name Alice       Print the panel in the terminal
  greeter render --format json      Print the render result as JSON
  greeter version                   Show version information

Endpoints (greeter serve):
  /         widget page (?name=Alice&lang=ko)
  /render   panel fragment, JSON with Accept: application/json
  /bridge   host bridge websocket
  /ws       live updates for open widget pages
  /health   health report`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .greeter.yml, can also use GREETER_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
}

// initConfig points viper at the config file and the environment.
//
// Configuration file priority (highest to lowest):
//  1. --config flag
//  2. GREETER_CONFIG_FILE environment variable
//  3. .greeter.yml in the current directory
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("GREETER_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".greeter")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(config.EnvKeyReplacer())
	viper.AutomaticEnv()

	// a missing or unreadable file leaves defaults and the environment in charge
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindFlag ties a viper key to a flag of cmd, looked up among both local and
// inherited flags. Binding at run time keeps viper.Reset in tests harmless.
func bindFlag(cmd *cobra.Command, key, flag string) {
	if f := cmd.Flags().Lookup(flag); f != nil {
		_ = viper.BindPFlag(key, f)
	}
}

// loadConfig binds the shared flags and loads the merged configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "log.format", "log-format")

	cfg, err := config.Load()
	if err != nil {
		path := viper.ConfigFileUsed()
		if path == "" {
			path = defaultConfigFile
		}
		return nil, errors.NewEnhancedError(
			"Failed to load configuration",
			errors.WrapConfig(err, "CONFIG_INVALID", "configuration rejected"),
			errors.ConfigurationError(err.Error(), path),
		)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, out io.Writer) logging.Logger {
	// already validated by config.Load
	level, _ := logging.ParseLevel(cfg.Log.Level)
	return logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Log.Format,
		Output:    out,
		Component: "cli",
	})
}
