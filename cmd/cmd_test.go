package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/greeter/internal/errors"
	"github.com/conneroisu/greeter/internal/widget"
)

// executeCommand runs the root command with args against fresh flag and
// viper state and returns what it wrote to stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	viper.Reset()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestRenderText(t *testing.T) {
	out, err := executeCommand(t, "render", "--name", "Alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello, Alice!")
	assert.Contains(t, out, "╭")
}

func TestRenderJSON(t *testing.T) {
	out, err := executeCommand(t, "render", "--name", "Alice", "--format", "json")
	require.NoError(t, err)

	var result widget.RenderResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "Hello, Alice!", result.Value)
	assert.Equal(t, "en", result.Locale)
	assert.Equal(t, 148, result.Height)
	assert.Contains(t, result.HTML, `class="greeting-widget"`)
}

func TestRenderHTMLLocales(t *testing.T) {
	tests := []struct {
		locale string
		want   string
	}{
		{"ko", "안녕하세요, Bob 님!"},
		{"ja-JP", "こんにちは、Bobさん！"},
		{"fr", "Hello, Bob!"},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			out, err := executeCommand(t, "render", "--name", "Bob", "--locale", tt.locale, "--format", "html")
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(out, `<div class="greeting-widget"`))
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestRenderEscapesName(t *testing.T) {
	out, err := executeCommand(t, "render", "--name", "<script>", "--format", "html")
	require.NoError(t, err)
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "<script>")
}

func TestRenderPage(t *testing.T) {
	out, err := executeCommand(t, "render", "-n", "Alice", "-f", "page")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.Contains(t, out, "Hello, Alice!")
}

func TestRenderFlagErrors(t *testing.T) {
	_, err := executeCommand(t, "render", "--format", "xml")
	assert.Error(t, err)

	_, err = executeCommand(t, "render", "--locale", "not a locale")
	assert.Error(t, err)

	_, err = executeCommand(t, "render", "extra-arg")
	assert.Error(t, err)
}

func TestRenderUsesCatalogFromEnvironment(t *testing.T) {
	catalog := filepath.Join(t.TempDir(), "catalog.yml")
	require.NoError(t, os.WriteFile(catalog, []byte("en:\n  greeting: \"Welcome, %s!\"\n"), 0o644))
	t.Setenv("GREETER_WIDGET_CATALOG_FILE", catalog)

	out, err := executeCommand(t, "render", "--name", "Alice", "--format", "html")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome, Alice!")
}

func TestRenderUsesConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "greeter.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("widget:\n  locale: ja\n"), 0o644))
	t.Setenv("GREETER_CONFIG_FILE", cfgPath)

	out, err := executeCommand(t, "render", "--name", "Alice", "--format", "html")
	require.NoError(t, err)
	assert.Contains(t, out, "こんにちは、Aliceさん！")
}

func TestInvalidConfigIsEnhanced(t *testing.T) {
	t.Setenv("GREETER_SERVER_PORT", "99999")

	_, err := executeCommand(t, "render", "--name", "Alice")
	require.Error(t, err)

	var enhanced *errors.EnhancedError
	require.ErrorAs(t, err, &enhanced)
	assert.True(t, errors.IsConfigError(err))
	out := errors.FormatError(err)
	assert.Contains(t, out, "Invalid port")
	assert.Contains(t, out, "Config.Server.Port")
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version", "--short")
	require.NoError(t, err)
	assert.NotEmpty(t, strings.TrimSpace(out))

	out, err = executeCommand(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "greeter "))
	assert.Contains(t, out, "Platform: ")

	out, err = executeCommand(t, "version", "--format", "json")
	require.NoError(t, err)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "greeter", info["name"])

	out, err = executeCommand(t, "version", "--detailed")
	require.NoError(t, err)
	assert.Contains(t, out, "Build type: ")

	_, err = executeCommand(t, "version", "--format", "xml")
	assert.Error(t, err)
}

func TestLocaleValue(t *testing.T) {
	var l localeValue
	assert.Equal(t, "locale", l.Type())

	require.NoError(t, l.Set("ko-kr"))
	assert.Equal(t, "ko-KR", l.String())

	require.NoError(t, l.Set(""))
	assert.Equal(t, "", l.String())

	assert.Error(t, l.Set("not a locale"))
}

func TestFormatValue(t *testing.T) {
	f := formatValue{allowed: renderFormats, value: "text"}
	assert.Equal(t, "format", f.Type())

	require.NoError(t, f.Set(" JSON "))
	assert.Equal(t, "json", f.String())

	err := f.Set("yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "html, page, text, json")
	assert.Equal(t, "json", f.String())
}

func TestServeFlagsRegistered(t *testing.T) {
	for _, name := range []string{"port", "host", "no-open", "locale"} {
		assert.NotNil(t, serveCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "8501", serveCmd.Flags().Lookup("port").DefValue)
}
