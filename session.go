package tex2typst

import (
	"sync/atomic"
)

// Session owns one interpreter with the bundle evaluated into its global
// context. A Session must only be entered by one goroutine at a time; the
// Registry hands each Session to a single caller.
type Session struct {
	bundle string
	engine *jsEngine
	busy   atomic.Bool
}

// NewSession allocates an interpreter and evaluates bundle into it once.
func NewSession(bundle Bundle) (*Session, error) {
	e := &jsEngine{}
	if err := e.New(); err != nil {
		return nil, &EngineInitError{Stage: StageRuntime, Bundle: bundle.Name, Err: err}
	}
	if err := e.setupContext(); err != nil {
		return nil, &EngineInitError{Stage: StageContext, Bundle: bundle.Name, Err: newJSError(err)}
	}
	if err := e.ParseString(bundle.Name, bundle.Source); err != nil {
		return nil, &EngineInitError{Stage: StageBundle, Bundle: bundle.Name, Err: newJSError(err)}
	}
	e.SetReady()
	return &Session{bundle: bundle.Name, engine: e}, nil
}

// WithContext runs f with exclusive access to the session's context. The
// Context is only valid until f returns. A panic inside f is returned as an
// engine-level JSError and closes the session, since the interpreter state
// can no longer be trusted.
func (s *Session) WithContext(f func(*Context) error) (err error) {
	if s.Closed() {
		return ErrSessionClosed
	}
	if !s.busy.CompareAndSwap(false, true) {
		return ErrSessionBusy
	}
	ctx := &Context{engine: s.engine, open: true}
	defer func() {
		ctx.open = false
		if r := recover(); r != nil {
			err = newJSError(&engineFault{v: r})
			s.engine.Close()
		}
		s.busy.Store(false)
	}()
	return f(ctx)
}

// Closed reports whether the session has been closed.
func (s *Session) Closed() bool {
	return s.engine == nil || !s.engine.IsReady()
}

// Close releases the interpreter.
func (s *Session) Close() {
	if s.engine != nil {
		s.engine.Close()
	}
}

// Bundle returns the name of the bundle loaded into s.
func (s *Session) Bundle() string {
	return s.bundle
}
