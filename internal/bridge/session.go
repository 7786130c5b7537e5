package bridge

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/conneroisu/greeter/internal/errors"
	"github.com/conneroisu/greeter/internal/logging"
	"github.com/conneroisu/greeter/internal/widget"
)

// Publisher receives every successful render, e.g. to mirror it to viewers.
type Publisher interface {
	Publish(req widget.GreetingRequest, tag language.Tag, result widget.RenderResult)
}

// Options bound a single session.
type Options struct {
	MaxMessageSize int64
	PingInterval   time.Duration
	WriteTimeout   time.Duration
}

// DefaultOptions mirrors the config defaults.
func DefaultOptions() Options {
	return Options{
		MaxMessageSize: 64 << 10,
		PingInterval:   30 * time.Second,
		WriteTimeout:   10 * time.Second,
	}
}

// Session is one host connection.
type Session struct {
	id        string
	conn      *websocket.Conn
	codec     Codec
	renderer  *widget.Renderer
	tag       language.Tag
	publisher Publisher
	logger    logging.Logger
	errs      *errors.ErrorHandler
	opts      Options

	// only touched by the read loop
	lastHeight int
	lastValue  string
	hasValue   bool
}

// NewSession wraps an accepted connection. publisher may be nil.
func NewSession(conn *websocket.Conn, codec Codec, renderer *widget.Renderer, tag language.Tag, opts Options, logger logging.Logger, publisher Publisher) *Session {
	id := uuid.NewString()
	if codec == nil {
		codec = JSON
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With("session", id)
	return &Session{
		id:        id,
		conn:      conn,
		codec:     codec,
		renderer:  renderer,
		tag:       tag,
		publisher: publisher,
		logger:    logger,
		errs:      errors.NewErrorHandler(logger),
		opts:      opts,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Run announces the widget and serves render messages until the host goes
// away or ctx is cancelled. A normal close returns nil.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.opts.MaxMessageSize > 0 {
		s.conn.SetReadLimit(s.opts.MaxMessageSize)
	}

	if err := s.send(ctx, readyMessage()); err != nil {
		return err
	}
	s.logger.Debug(ctx, "Bridge session ready", "codec", s.codec.Name(), "locale", s.tag.String())

	if s.opts.PingInterval > 0 {
		go s.pingLoop(ctx)
	}

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			if isClosed(ctx, err) {
				s.logger.Debug(ctx, "Bridge session closed")
				return nil
			}
			return errors.WrapNetwork(err, "BRIDGE_READ", "failed to read from host").WithSession(s.id)
		}

		if err := s.handle(ctx, data); err != nil {
			if errors.IsRecoverable(err) {
				// logged and skipped; the host never sees it
				s.errs.Handle(ctx, err)
				continue
			}
			return err
		}
	}
}

// handle processes one inbound frame. Protocol problems come back as
// recoverable errors so the caller can skip the frame.
func (s *Session) handle(ctx context.Context, data []byte) error {
	msg, err := s.codec.Decode(data)
	if err != nil {
		return errors.WrapProtocol(err, "BRIDGE_DECODE", "undecodable frame").
			WithSession(s.id).
			WithContext("bytes", len(data))
	}

	msgType, _ := msg["type"].(string)
	if msgType != TypeRender {
		return errors.NewProtocolError("BRIDGE_UNKNOWN_TYPE", fmt.Sprintf("unknown message type %q", logging.SanitizeForLog(msgType)), nil).
			WithSession(s.id)
	}

	req := widget.RequestFromProps(msg)
	result, err := s.renderer.Render(ctx, req, s.tag)
	if err != nil {
		return err
	}

	if !s.hasValue || result.Height != s.lastHeight {
		if err := s.send(ctx, frameHeightMessage(result.Height)); err != nil {
			return err
		}
		s.lastHeight = result.Height
	}
	if !s.hasValue || result.Value != s.lastValue {
		if err := s.send(ctx, componentValueMessage(result.Value)); err != nil {
			return err
		}
		s.lastValue = result.Value
	}
	s.hasValue = true

	s.logger.Debug(ctx, "Rendered greeting",
		"name", logging.SanitizeForLog(req.Name),
		"width", req.Width,
		"height", result.Height)

	if s.publisher != nil {
		s.publisher.Publish(req, s.tag, result)
	}
	return nil
}

func (s *Session) send(ctx context.Context, v any) error {
	data, err := s.codec.Encode(v)
	if err != nil {
		return errors.NewInternalError("BRIDGE_ENCODE", "failed to encode message", err).WithSession(s.id)
	}

	writeCtx := ctx
	if s.opts.WriteTimeout > 0 {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(ctx, s.opts.WriteTimeout)
		defer cancel()
	}

	if err := s.conn.Write(writeCtx, s.codec.MessageType(), data); err != nil {
		return errors.WrapNetwork(err, "BRIDGE_WRITE", "failed to write to host").WithSession(s.id)
	}
	return nil
}

func (s *Session) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, s.opts.PingInterval)
			err := s.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Warn(ctx, err, "Bridge ping failed")
					s.conn.Close(websocket.StatusPolicyViolation, "ping timeout")
				}
				return
			}
		}
	}
}

func isClosed(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return stderrors.Is(err, context.Canceled)
}

// Handler upgrades requests to bridge sessions.
type Handler struct {
	Renderer       *widget.Renderer
	Options        Options
	OriginPatterns []string
	Logger         logging.Logger
	Publisher      Publisher
}

// ServeHTTP accepts the websocket and runs the session until it ends. The
// session locale comes from the lang query parameter, then Accept-Language.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{SubprotocolJSON, SubprotocolCBOR},
		OriginPatterns: h.OriginPatterns,
	})
	if err != nil {
		logger.Warn(r.Context(), err, "Bridge upgrade failed", "remote_addr", r.RemoteAddr)
		return
	}
	defer conn.CloseNow()

	tag := h.Renderer.Localizer().Match(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
	session := NewSession(conn, CodecFor(conn.Subprotocol()), h.Renderer, tag, h.Options, logger, h.Publisher)

	logger.Info(r.Context(), "Bridge session started",
		"session", session.ID(),
		"remote_addr", r.RemoteAddr,
		"subprotocol", conn.Subprotocol())

	if err := session.Run(r.Context()); err != nil {
		logger.Warn(r.Context(), err, "Bridge session ended with error", "session", session.ID())
		conn.Close(websocket.StatusInternalError, "session error")
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
