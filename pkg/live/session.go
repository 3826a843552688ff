package live

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-resumekit/pkg/component"
)

// Frame types.
const (
	FrameRender = "render"
	FrameError  = "error"
)

// Frame is one server to client message. Render frames carry the complete
// view; the client replaces its root element with HTML.
type Frame struct {
	Type        string `json:"type"`
	Seq         uint64 `json:"seq"`
	Template    string `json:"template,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	HTML        string `json:"html,omitempty"`
	Flash       string `json:"flash,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Session is one live component: its event loop, the component driven by it
// and the change signal that produces render frames.
type Session struct {
	id      string
	loop    *component.Loop
	comp    *component.Component
	changes chan struct{}
	notices chan Frame
	seq     atomic.Uint64
	logger  *slog.Logger
	cancel  context.CancelFunc
}

// Builder creates the session's component. It runs on the session loop and
// must pass loop to the component as its poster.
type Builder func(ctx context.Context, loop *component.Loop) (*component.Component, error)

// NewSession starts a loop and builds the component on it. The session ends
// when ctx is cancelled or Close is called.
func NewSession(ctx context.Context, id string, build Builder, logger *slog.Logger) (*Session, error) {
	if build == nil {
		return nil, errors.New("live: session builder is required")
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:      id,
		loop:    component.NewLoop(),
		changes: make(chan struct{}, 1),
		notices: make(chan Frame, 8),
		logger:  logger,
		cancel:  cancel,
	}
	go func() { _ = s.loop.Run(ctx) }()

	err := s.loop.Call(ctx, func() error {
		comp, err := build(ctx, s.loop)
		if err != nil {
			return err
		}
		s.comp = comp
		comp.Subscribe(s.signal)
		return nil
	})
	if err != nil {
		s.Close()
		return nil, err
	}

	// Clients start from the server rendered page; the first frame resyncs
	// them with anything that changed since.
	s.signal()
	return s, nil
}

// ID returns the resume the session edits.
func (s *Session) ID() string {
	return s.id
}

// Close stops the session loop.
func (s *Session) Close() {
	s.cancel()
	s.loop.Stop()
}

// Dispatch applies action on the session loop.
func (s *Session) Dispatch(ctx context.Context, action component.Action) error {
	return s.loop.Call(ctx, func() error {
		return s.comp.Dispatch(ctx, action)
	})
}

// Render builds a render frame from the current view.
func (s *Session) Render(ctx context.Context) (Frame, error) {
	var frame Frame
	err := s.loop.Call(ctx, func() error {
		out, contentType, err := s.comp.View(ctx)
		if err != nil {
			return err
		}
		frame = Frame{
			Type:        FrameRender,
			Template:    s.comp.TemplateName(),
			ContentType: contentType,
			HTML:        string(out),
			Flash:       s.comp.Flash(),
		}
		return nil
	})
	if err != nil {
		return Frame{}, err
	}
	frame.Seq = s.seq.Add(1)
	return frame, nil
}

// Frames renders a frame for every change of the view until done closes.
// Changes arriving while a frame is being rendered are coalesced into one.
func (s *Session) Frames(ctx context.Context) <-chan Frame {
	return channerics.Convert(ctx.Done(), s.changes, func(struct{}) Frame {
		frame, err := s.Render(ctx)
		if err != nil {
			return s.errorFrame(err)
		}
		return frame
	})
}

// Serve pumps frames to ws and actions from it until either side goes away.
// A normal closure by the peer is not an error.
func (s *Session) Serve(ctx context.Context, ws *websocket.Conn) error {
	sock := newWebSocket(ws)
	ws.SetReadLimit(maxMessageSize)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return s.readMessages(groupCtx, sock)
	})
	group.Go(func() error {
		return s.publish(groupCtx, sock)
	})
	group.Go(func() error {
		return s.pingPong(groupCtx, sock)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		sock.close()
		return nil
	})

	err := group.Wait()
	if err == nil || isClosure(err) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Session) signal() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func (s *Session) notify(frame Frame) {
	select {
	case s.notices <- frame:
	default:
		s.logger.Debug("notice dropped", "resume", s.id, "error", frame.Error)
	}
}

func (s *Session) errorFrame(err error) Frame {
	return Frame{Type: FrameError, Seq: s.seq.Add(1), Error: err.Error()}
}

// readMessages decodes client actions and dispatches them. Read errors are
// permanent and end the session.
func (s *Session) readMessages(ctx context.Context, sock *websock) error {
	for {
		var payload []byte
		err := sock.read(ctx, func(ws *websocket.Conn) (readErr error) {
			_, payload, readErr = ws.ReadMessage()
			return
		})
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		action, err := component.DecodeAction(payload)
		if err != nil {
			s.notify(s.errorFrame(err))
			continue
		}
		if err := s.Dispatch(ctx, action); err != nil {
			if errors.Is(err, component.ErrLoopStopped) {
				return err
			}
			// Handled failures show up in the next render.
			s.logger.Debug("action not applied",
				"resume", s.id,
				"action", component.ActionName(action),
				"error", err,
			)
		}
	}
}

func (s *Session) publish(ctx context.Context, sock *websock) error {
	inputs := []<-chan Frame{s.Frames(ctx), s.notices}
	for frame := range channerics.Merge(ctx.Done(), inputs...) {
		frame := frame
		err := sock.write(ctx, func(ws *websocket.Conn) error {
			return ws.WriteJSON(frame)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// pingPong checks peer liveness. It relies on readMessages running so the
// pong handler is called.
func (s *Session) pingPong(ctx context.Context, sock *websock) error {
	pong := make(chan struct{}, 1)
	sock.ws.SetPongHandler(func(string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingPeriod)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}
			err := sock.write(ctx, func(ws *websocket.Conn) error {
				return ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			})
			if err != nil {
				return err
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}
