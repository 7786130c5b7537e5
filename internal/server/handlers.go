package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/conneroisu/greeter/internal/errors"
	"github.com/conneroisu/greeter/internal/version"
	"github.com/conneroisu/greeter/internal/widget"
)

// requestFromQuery reads name, width and disabled the same permissive way
// the bridge reads props: bad numbers and booleans become zero values.
func requestFromQuery(q url.Values) widget.GreetingRequest {
	req := widget.GreetingRequest{Name: q.Get("name")}
	if w, err := strconv.Atoi(q.Get("width")); err == nil && w > 0 {
		req.Width = w
	}
	if d, err := strconv.ParseBool(q.Get("disabled")); err == nil {
		req.Disabled = d
	}
	return req
}

func (s *WidgetServer) localeFor(r *http.Request) language.Tag {
	return s.localizer.Match(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
}

func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func wantsJSON(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if mediaType == "application/json" {
			return true
		}
	}
	return false
}

func (s *WidgetServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !allowRead(w, r) {
		return
	}

	req := requestFromQuery(r.URL.Query())
	view := s.renderer.View(req, s.localeFor(r))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Language", view.Locale)
	if err := widget.Page(view, widget.PageOptions{SocketPath: "/ws"}).Render(r.Context(), w); err != nil {
		s.logger.Error(r.Context(), err, "Failed to render page")
	}
}

func (s *WidgetServer) handleRender(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}

	req := requestFromQuery(r.URL.Query())
	result, err := s.renderer.Render(r.Context(), req, s.localeFor(r))
	if err != nil {
		s.logger.Error(r.Context(), err, "Render failed")
		http.Error(w, errors.FormatError(err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Language", result.Locale)
	w.Header().Set("Vary", "Accept, Accept-Language")

	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			s.logger.Error(r.Context(), err, "Failed to encode render result")
		}
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Frame-Height", strconv.Itoa(result.Height))
	if _, err := w.Write([]byte(result.HTML)); err != nil {
		s.logger.Debug(r.Context(), "Render response not delivered", "error", err.Error())
	}
}

// handleHealth returns the server health status for health checks
func (s *WidgetServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	locales := make([]string, 0)
	for _, tag := range s.localizer.Supported() {
		locales = append(locales, tag.String())
	}

	watcherCheck := map[string]interface{}{"status": "disabled"}
	if s.watcher != nil {
		watcherCheck = map[string]interface{}{"status": "healthy", "file": s.config.Widget.CatalogFile}
	}

	health := map[string]interface{}{
		"status":     "healthy",
		"timestamp":  time.Now().UTC(),
		"version":    version.GetShortVersion(),
		"build_info": version.GetBuildInfo(),
		"checks": map[string]interface{}{
			"server":    map[string]interface{}{"status": "healthy", "message": "HTTP server operational"},
			"localizer": map[string]interface{}{"status": "healthy", "default": s.localizer.Default().String(), "locales": locales},
			"viewers":   map[string]interface{}{"status": "healthy", "connected": s.ViewerCount()},
			"watcher":   watcherCheck,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Error(r.Context(), err, "Failed to encode health response")
	}
}
