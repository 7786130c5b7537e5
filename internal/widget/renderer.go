package widget

import (
	"context"
	"strings"

	"golang.org/x/text/language"

	"github.com/conneroisu/greeter/internal/errors"
	"github.com/conneroisu/greeter/internal/i18n"
)

// RenderResult is what a render hands back to the host.
type RenderResult struct {
	Locale string `json:"locale"`
	HTML   string `json:"html"`
	Height int    `json:"height"`
	// Value is the plain-text greeting reported to the host as the component value.
	Value string `json:"value"`
}

// Renderer turns requests into localized panels.
type Renderer struct {
	localizer *i18n.Localizer
}

// NewRenderer creates a renderer backed by localizer.
func NewRenderer(localizer *i18n.Localizer) *Renderer {
	return &Renderer{localizer: localizer}
}

// Localizer returns the localizer used for every render.
func (r *Renderer) Localizer() *i18n.Localizer {
	return r.localizer
}

// View resolves the localized strings for req. A tag the catalog does not
// carry renders in the default locale.
func (r *Renderer) View(req GreetingRequest, tag language.Tag) View {
	tag = r.localizer.Resolve(tag)
	return View{
		Locale:      tag.String(),
		Greeting:    r.localizer.Greeting(tag, req.Name),
		Description: r.localizer.Description(tag),
	}
}

// Render produces the panel markup, its estimated frame height and the value
// reported back to the host. Identical input yields identical output.
func (r *Renderer) Render(ctx context.Context, req GreetingRequest, tag language.Tag) (RenderResult, error) {
	v := r.View(req, tag)

	var sb strings.Builder
	if err := Greeting(v).Render(ctx, &sb); err != nil {
		return RenderResult{}, errors.NewRenderError("RENDER_FAILED", "failed to render greeting", err)
	}

	markup := sb.String()
	return RenderResult{
		Locale: v.Locale,
		HTML:   markup,
		Height: EstimateHeight(markup, req.Width),
		Value:  v.Greeting,
	}, nil
}
