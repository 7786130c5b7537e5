package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/conneroisu/greeter/internal/i18n"
	"github.com/conneroisu/greeter/internal/logging"
	"github.com/conneroisu/greeter/internal/widget"
)

var renderFlags *StandardFlags

var renderCmd = &cobra.Command{
	Use:     "render",
	Aliases: []string{"r"},
	Short:   "Render the greeting once and print it",
	Long: `Render the greeting panel once without starting a server.

Formats:
  text   bordered panel for the terminal (default)
  html   the panel markup a host embeds
  page   a standalone HTML document
  json   markup, estimated frame height and reported value

Examples:
  greeter render --name Alice
  greeter render --name 홍길동 --locale ko --format html
  greeter render --name Alice --width 320 --format json`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderFlags = AddStandardFlags(renderCmd, "widget", "locale", "output")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	var overrides map[string]i18n.Strings
	if cfg.Widget.CatalogFile != "" {
		overrides, err = i18n.LoadOverrides(cfg.Widget.CatalogFile)
		if err != nil {
			return err
		}
	}

	localizer, err := i18n.New(cfg.Widget.Locale, overrides)
	if err != nil {
		return err
	}

	// unsupported locales fall back to the configured default
	tag := localizer.Match(renderFlags.Locale.String())

	req := widget.GreetingRequest{Name: renderFlags.Name, Width: max(renderFlags.Width, 0)}
	return renderTo(cmd.Context(), cmd.OutOrStdout(), widget.NewRenderer(localizer), req, tag, renderFlags.Format.String(), logger)
}

func renderTo(ctx context.Context, out io.Writer, renderer *widget.Renderer, req widget.GreetingRequest, tag language.Tag, format string, logger logging.Logger) error {
	logger.Debug(ctx, "Rendering greeting",
		"name", logging.SanitizeForLog(req.Name),
		"locale", tag.String(),
		"format", format)

	switch format {
	case "text":
		_, err := fmt.Fprintln(out, widget.Terminal(renderer.View(req, tag), req.Width))
		return err

	case "page":
		return widget.Page(renderer.View(req, tag), widget.PageOptions{}).Render(ctx, out)

	case "html", "json":
		result, err := renderer.Render(ctx, req, tag)
		if err != nil {
			return err
		}
		if format == "html" {
			_, err = fmt.Fprintln(out, result.HTML)
			return err
		}
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)

	default:
		return fmt.Errorf("unsupported format: %s (supported: html, page, text, json)", format)
	}
}
