// Package config provides configuration management for greeter using Viper
// for loading from files, environment variables, and command-line flags.
//
// Keys are grouped into server, widget, bridge and log sections. Every key
// can be overridden with a GREETER_ prefixed environment variable, e.g.
// GREETER_SERVER_PORT or GREETER_WIDGET_LOCALE. Values are checked with
// go-playground/validator struct tags after defaults are applied.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/conneroisu/greeter/internal/validation"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Widget WidgetConfig `mapstructure:"widget"`
	Bridge BridgeConfig `mapstructure:"bridge"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port" validate:"gte=0,lte=65535"`
	Host           string   `mapstructure:"host" validate:"required"`
	Open           bool     `mapstructure:"open"`
	NoOpen         bool     `mapstructure:"no-open"`
	AllowedOrigins []string `mapstructure:"allowed_origins" validate:"dive,url"`
	Environment    string   `mapstructure:"environment" validate:"oneof=development production"`
}

type WidgetConfig struct {
	Locale       string `mapstructure:"locale" validate:"required,bcp47_language_tag"`
	CatalogFile  string `mapstructure:"catalog_file"`
	WatchCatalog bool   `mapstructure:"watch_catalog"`
}

type BridgeConfig struct {
	MaxMessageSize int64         `mapstructure:"max_message_size" validate:"gt=0"`
	PingInterval   time.Duration `mapstructure:"ping_interval" validate:"gte=0"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// Defaults used when neither the config file, the environment nor a flag sets a key.
const (
	DefaultPort           = 8501
	DefaultHost           = "localhost"
	DefaultLocale         = "en"
	DefaultMaxMessageSize = 64 << 10
	DefaultPingInterval   = 30 * time.Second
	DefaultWriteTimeout   = 10 * time.Second
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "GREETER"

var validate = validator.New(validator.WithRequiredStructEnabled())

// EnvKeyReplacer maps config keys such as server.no-open to GREETER_SERVER_NO_OPEN.
func EnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_", "-", "_")
}

func setDefaults() {
	viper.SetDefault("server.port", DefaultPort)
	viper.SetDefault("server.host", DefaultHost)
	viper.SetDefault("server.open", true)
	viper.SetDefault("server.environment", "development")
	viper.SetDefault("widget.locale", DefaultLocale)
	viper.SetDefault("widget.catalog_file", "")
	viper.SetDefault("widget.watch_catalog", true)
	viper.SetDefault("bridge.max_message_size", DefaultMaxMessageSize)
	viper.SetDefault("bridge.ping_interval", DefaultPingInterval)
	viper.SetDefault("bridge.write_timeout", DefaultWriteTimeout)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

func Load() (*Config, error) {
	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Override open if no-open was explicitly set via flag
	if viper.IsSet("server.no-open") && viper.GetBool("server.no-open") {
		config.Server.Open = false
	}

	// viper leaves slices set through env vars as a single string
	if len(config.Server.AllowedOrigins) == 1 && strings.Contains(config.Server.AllowedOrigins[0], ",") {
		config.Server.AllowedOrigins = strings.Split(config.Server.AllowedOrigins[0], ",")
	}

	config.Log.Level = strings.ToLower(config.Log.Level)
	config.Log.Format = strings.ToLower(config.Log.Format)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Address is the host:port the server binds to.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// validateConfig validates configuration values for security and correctness
func validateConfig(config *Config) error {
	if err := validate.Struct(config); err != nil {
		return err
	}

	if err := validateHost(config.Server.Host); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if config.Widget.CatalogFile != "" {
		if err := validation.ValidateCatalogPath(config.Widget.CatalogFile); err != nil {
			return fmt.Errorf("widget config: invalid catalog_file '%s': %w", config.Widget.CatalogFile, err)
		}
	}

	return nil
}

func validateHost(host string) error {
	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
	for _, char := range dangerousChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("host contains dangerous character: %s", char)
		}
	}

	return nil
}
