package widget

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// View is the localized content of one panel.
type View struct {
	Locale      string
	Greeting    string
	Description string
}

const panelStyle = "padding: 1rem; background-color: #f5f5f5; border-radius: 8px;"

// Greeting renders the panel markup.
func Greeting(v View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		parts := []string{
			`<div class="greeting-widget" lang="`, templ.EscapeString(v.Locale),
			`" style="`, panelStyle, `">`,
			`<h3><span aria-hidden="true">👋</span> `, templ.EscapeString(v.Greeting), `</h3>`,
			`<p>`, templ.EscapeString(v.Description), `</p>`,
			`</div>`,
		}
		for _, p := range parts {
			if _, err := io.WriteString(w, p); err != nil {
				return err
			}
		}
		return nil
	})
}
