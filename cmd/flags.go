package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/text/language"
)

// StandardFlags provides consistent flag definitions across commands
type StandardFlags struct {
	// Server flags
	Port   int    `flag:"port,p" desc:"Port to serve on" default:"8501"`
	Host   string `flag:"host" desc:"Host to bind to" default:"localhost"`
	NoOpen bool   `flag:"no-open" desc:"Don't open browser automatically" default:"false"`

	// Widget flags
	Name   string      `flag:"name,n" desc:"Name to greet" default:""`
	Locale localeValue `flag:"locale" desc:"Locale (BCP 47 tag, e.g. en, ko, ja)" default:""`
	Width  int         `flag:"width,w" desc:"Frame width in pixels or terminal columns" default:"0"`

	// Output flags
	Format formatValue `flag:"format,f" desc:"Output format (html|page|text|json)" default:"text"`
}

// AddStandardFlags adds standard flag groups ("server", "widget", "locale",
// "output") to a command.
func AddStandardFlags(cmd *cobra.Command, flagTypes ...string) *StandardFlags {
	flags := &StandardFlags{
		Format: formatValue{allowed: renderFormats, value: "text"},
	}

	for _, flagType := range flagTypes {
		switch flagType {
		case "server":
			addServerFlags(cmd.Flags(), flags)
		case "widget":
			addWidgetFlags(cmd.Flags(), flags)
		case "locale":
			cmd.Flags().Var(&flags.Locale, "locale", "Locale (BCP 47 tag, e.g. en, ko, ja)")
		case "output":
			addOutputFlags(cmd.Flags(), flags)
		}
	}

	return flags
}

func addServerFlags(fs *pflag.FlagSet, flags *StandardFlags) {
	fs.IntVarP(&flags.Port, "port", "p", 8501, "Port to serve on")
	fs.StringVar(&flags.Host, "host", "localhost", "Host to bind to")
	fs.BoolVar(&flags.NoOpen, "no-open", false, "Don't open browser automatically")
}

func addWidgetFlags(fs *pflag.FlagSet, flags *StandardFlags) {
	fs.StringVarP(&flags.Name, "name", "n", "", "Name to greet")
	fs.IntVarP(&flags.Width, "width", "w", 0, "Frame width in pixels or terminal columns (0 = no wrapping)")
}

func addOutputFlags(fs *pflag.FlagSet, flags *StandardFlags) {
	fs.VarP(&flags.Format, "format", "f", "Output format ("+strings.Join(flags.Format.allowed, "|")+")")
}

// localeValue is a pflag.Value that only accepts well-formed language tags.
type localeValue struct {
	tag string
}

var _ pflag.Value = (*localeValue)(nil)

func (l *localeValue) String() string { return l.tag }

func (l *localeValue) Set(s string) error {
	if s == "" {
		l.tag = ""
		return nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid locale %q: %w", s, err)
	}
	l.tag = tag.String()
	return nil
}

func (l *localeValue) Type() string { return "locale" }

var renderFormats = []string{"html", "page", "text", "json"}

// formatValue is a pflag.Value restricted to a fixed set of choices.
type formatValue struct {
	allowed []string
	value   string
}

var _ pflag.Value = (*formatValue)(nil)

func (f *formatValue) String() string { return f.value }

func (f *formatValue) Set(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range f.allowed {
		if s == a {
			f.value = s
			return nil
		}
	}
	return fmt.Errorf("unsupported format %q (supported: %s)", s, strings.Join(f.allowed, ", "))
}

func (f *formatValue) Type() string { return "format" }
