package phonemize

import (
	"context"
	"errors"
	"sync"

	"github.com/example/go-piper-phonemize/internal/voice"
)

// ErrSessionClosed is returned by a Session used after Close.
var ErrSessionClosed = errors.New("engine session closed")

// Gateway serializes all access to one Engine. At most one Session is open
// at any time, whatever voice it uses.
type Gateway struct {
	engine Engine
	// slot is a one-element lock; a channel lets waiters give up on ctx.
	slot    chan struct{}
	current string
}

func NewGateway(engine Engine) *Gateway {
	return &Gateway{engine: engine, slot: make(chan struct{}, 1)}
}

// Engine returns the wrapped engine's name.
func (g *Gateway) Engine() string { return g.engine.Name() }

// Begin waits for exclusive use of the engine and selects v. The returned
// Session must be closed to release the engine.
func (g *Gateway) Begin(ctx context.Context, v voice.Voice) (*Session, error) {
	select {
	case g.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if g.current != v.ID {
		if err := g.engine.SetVoice(v); err != nil {
			g.current = ""
			<-g.slot

			return nil, err
		}

		g.current = v.ID
	}

	return &Session{g: g, voice: v}, nil
}

// Close waits for the active session, then closes the engine.
func (g *Gateway) Close() error {
	g.slot <- struct{}{}
	defer func() { <-g.slot }()

	g.current = ""

	return g.engine.Close()
}

// Session is exclusive access to the engine for one voice.
type Session struct {
	g      *Gateway
	voice  voice.Voice
	once   sync.Once
	closed bool
}

// Voice returns the voice selected for this session.
func (s *Session) Voice() voice.Voice { return s.voice }

// Transcribe runs the engine on text.
func (s *Session) Transcribe(ctx context.Context, text string) ([]string, error) {
	if s.closed {
		return nil, ErrSessionClosed
	}

	return s.g.engine.Transcribe(ctx, text)
}

// Close releases the engine. Calling it more than once is harmless.
func (s *Session) Close() {
	s.once.Do(func() {
		s.closed = true
		<-s.g.slot
	})
}
