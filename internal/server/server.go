// Package server serves the greeting widget over HTTP.
//
// Routes:
//
//	GET /        full widget page for ?name=
//	GET /render  panel fragment, or a JSON RenderResult for Accept: application/json
//	GET /bridge  host bridge websocket
//	GET /ws      viewer websocket for live updates
//	GET /health  health report
//
// Every render made through the bridge is mirrored to connected viewers. When
// a catalog file is configured and watched, edits to it are picked up without
// a restart and the last bridge render is pushed again in the new wording.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/text/language"

	"github.com/conneroisu/greeter/internal/bridge"
	"github.com/conneroisu/greeter/internal/config"
	"github.com/conneroisu/greeter/internal/errors"
	"github.com/conneroisu/greeter/internal/i18n"
	"github.com/conneroisu/greeter/internal/logging"
	"github.com/conneroisu/greeter/internal/validation"
	"github.com/conneroisu/greeter/internal/watcher"
	"github.com/conneroisu/greeter/internal/widget"
)

const catalogDebounce = 300 * time.Millisecond

// Client is a connected viewer.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	server *WidgetServer
}

// WidgetServer serves the widget, the host bridge and live updates.
type WidgetServer struct {
	config    *config.Config
	logger    logging.Logger
	localizer *i18n.Localizer
	renderer  *widget.Renderer
	bridge    *bridge.Handler
	watcher   *watcher.FileWatcher

	httpServer  *http.Server
	serverMutex sync.RWMutex

	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex
	broadcast    chan []byte
	register     chan *Client
	unregister   chan *websocket.Conn
	hubDone      chan struct{}
	hubOnce      sync.Once
	hubCtx       context.Context
	hubCancel    context.CancelFunc

	lastMutex sync.RWMutex
	last      *lastRender

	cancel        context.CancelFunc
	shutdownOnce  sync.Once
	isShutdown    bool
	shutdownMutex sync.RWMutex
}

type lastRender struct {
	req widget.GreetingRequest
	tag language.Tag
}

// UpdateMessage is sent to viewers.
type UpdateMessage struct {
	Type      string    `json:"type"`
	Content   string    `json:"content,omitempty"`
	Height    int       `json:"height,omitempty"`
	Locale    string    `json:"locale,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates a server from cfg. The catalog file, when configured, must be
// readable at startup.
func New(cfg *config.Config, logger logging.Logger) (*WidgetServer, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.WithComponent("server")

	var overrides map[string]i18n.Strings
	if cfg.Widget.CatalogFile != "" {
		var err error
		overrides, err = i18n.LoadOverrides(cfg.Widget.CatalogFile)
		if err != nil {
			return nil, err
		}
	}

	localizer, err := i18n.New(cfg.Widget.Locale, overrides)
	if err != nil {
		return nil, err
	}

	s := &WidgetServer{
		config:     cfg,
		logger:     logger,
		localizer:  localizer,
		renderer:   widget.NewRenderer(localizer),
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		hubDone:    make(chan struct{}),
	}
	s.hubCtx, s.hubCancel = context.WithCancel(context.Background())

	s.bridge = &bridge.Handler{
		Renderer:       s.renderer,
		Options:        bridgeOptions(cfg.Bridge),
		OriginPatterns: s.bridgeOriginPatterns(),
		Logger:         logger.WithComponent("bridge"),
		Publisher:      s,
	}

	if cfg.Widget.CatalogFile != "" && cfg.Widget.WatchCatalog {
		fw, err := watcher.NewFileWatcher(catalogDebounce, logger)
		if err != nil {
			return nil, err
		}
		if err := fw.WatchFile(cfg.Widget.CatalogFile); err != nil {
			fw.Stop()
			return nil, err
		}
		fw.AddHandler(s.handleCatalogChange)
		s.watcher = fw
	}

	return s, nil
}

// bridgeOptions overlays the configured limits on the bridge defaults. A zero
// ping interval is kept as is and disables pings.
func bridgeOptions(cfg config.BridgeConfig) bridge.Options {
	opts := bridge.DefaultOptions()
	if cfg.MaxMessageSize > 0 {
		opts.MaxMessageSize = cfg.MaxMessageSize
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	opts.PingInterval = cfg.PingInterval
	return opts
}

// Handler returns the routed and wrapped HTTP handler. It can be served
// without Start; the viewer hub starts with the first viewer.
func (s *WidgetServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/render", s.handleRender)
	mux.Handle("/bridge", s.bridge)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return s.addMiddleware(mux)
}

// Start serves until ctx is cancelled or Shutdown is called.
func (s *WidgetServer) Start(ctx context.Context) error {
	ctx = s.startBackground(ctx)

	addr := s.config.Address()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WrapNetwork(err, "SERVER_LISTEN", fmt.Sprintf("cannot listen on %s", addr))
	}

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(shutdownCtx, err, "Server shutdown incomplete")
		}
	}()

	if s.config.Server.Open {
		go s.openBrowser(fmt.Sprintf("http://%s", ln.Addr().String()))
	}

	s.logger.Info(ctx, "Server listening", "addr", ln.Addr().String(), "locale", s.localizer.Default().String())

	if err := server.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return errors.WrapNetwork(err, "SERVER_SERVE", "server error")
	}
	return nil
}

// startBackground runs the viewer hub and the catalog watcher.
func (s *WidgetServer) startBackground(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	s.shutdownMutex.Lock()
	s.cancel = cancel
	s.shutdownMutex.Unlock()

	s.startHub()

	if s.watcher != nil {
		if err := s.watcher.Start(ctx); err != nil {
			s.logger.Warn(ctx, err, "Catalog watcher not started")
		} else {
			s.logger.Info(ctx, "Watching catalog", "file", s.config.Widget.CatalogFile)
		}
	}
	return ctx
}

// Publish records a bridge render and mirrors it to viewers.
func (s *WidgetServer) Publish(req widget.GreetingRequest, tag language.Tag, result widget.RenderResult) {
	s.lastMutex.Lock()
	s.last = &lastRender{req: req, tag: tag}
	s.lastMutex.Unlock()

	s.broadcastMessage(UpdateMessage{
		Type:      "component_update",
		Content:   result.HTML,
		Height:    result.Height,
		Locale:    result.Locale,
		Timestamp: time.Now(),
	})
}

func (s *WidgetServer) handleCatalogChange(events []watcher.ChangeEvent) error {
	ctx := context.Background()
	for _, event := range events {
		s.logger.Info(ctx, "Catalog changed", "file", event.Path, "event", event.Type.String())
	}

	if err := s.localizer.Reload(s.config.Widget.CatalogFile); err != nil {
		// keep serving the previous catalog
		return err
	}

	s.lastMutex.RLock()
	last := s.last
	s.lastMutex.RUnlock()

	if last == nil {
		s.broadcastMessage(UpdateMessage{Type: "full_reload", Timestamp: time.Now()})
		return nil
	}

	result, err := s.renderer.Render(ctx, last.req, last.tag)
	if err != nil {
		return err
	}
	s.Publish(last.req, last.tag, result)
	return nil
}

func (s *WidgetServer) broadcastMessage(msg UpdateMessage) {
	if s.shuttingDown() {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error(context.Background(), err, "Failed to marshal viewer update")
		data = []byte(`{"type":"full_reload"}`)
	}

	select {
	case s.broadcast <- data:
	default:
		s.logger.Warn(context.Background(), nil, "Viewer broadcast queue full, dropping update", "type", msg.Type)
	}
}

func (s *WidgetServer) shuttingDown() bool {
	s.shutdownMutex.RLock()
	defer s.shutdownMutex.RUnlock()
	return s.isShutdown
}

func (s *WidgetServer) openBrowser(target string) {
	time.Sleep(100 * time.Millisecond)

	if err := validation.ValidateURL(target); err != nil {
		s.logger.Warn(context.Background(), err, "Browser open refused", "url", target)
		return
	}

	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", target).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", target).Start()
	case "darwin":
		err = exec.Command("open", target).Start()
	default:
		err = fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}

	if err != nil {
		s.logger.Warn(context.Background(), err, "Failed to open browser")
	}
}

func (s *WidgetServer) addMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if s.isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
		} else if s.config.Server.Environment == "development" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Accept-Language")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		start := time.Now()
		handler.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "Request served",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).String())
	})
}

func (s *WidgetServer) isAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range s.config.Server.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// bridgeOriginPatterns lists the browser origins a host page may connect
// from. Clients that send no Origin are always accepted.
func (s *WidgetServer) bridgeOriginPatterns() []string {
	if s.config.Server.Environment == "development" {
		return []string{"*"}
	}
	patterns := make([]string, 0, len(s.config.Server.AllowedOrigins))
	for _, origin := range s.config.Server.AllowedOrigins {
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}

// Shutdown stops the watcher, disconnects viewers and stops the HTTP server.
func (s *WidgetServer) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		s.shutdownMutex.Lock()
		s.isShutdown = true
		cancel := s.cancel
		s.shutdownMutex.Unlock()

		if cancel != nil {
			cancel()
		}
		s.hubCancel()

		if s.watcher != nil {
			if err := s.watcher.Stop(); err != nil {
				s.logger.Warn(ctx, err, "Watcher stop failed")
			}
		}

		s.clientsMutex.Lock()
		for conn, client := range s.clients {
			close(client.send)
			conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
		s.clients = make(map[*websocket.Conn]*Client)
		s.clientsMutex.Unlock()

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})

	return shutdownErr
}
