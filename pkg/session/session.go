// Package session manages the ArangoDB connection lifecycle and the narrow
// client interface the ORM talks to.
package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/pay-theory/arangorm/pkg/errors"
)

// State is the connection state of a Session.
type State int

const (
	Unconnected State = iota
	Connecting
	Connected
	Failed
)

func (s State) String() string {
	switch s {
	case Unconnected:
		return "unconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Dialer opens a client for the given configuration.
type Dialer func(ctx context.Context, cfg *Config) (Client, error)

// dialFunc is a variable to allow mocking the default dialer in tests
var dialFunc Dialer = DialHTTP

// attempt is one in-flight connection attempt shared by concurrent callers.
type attempt struct {
	done   chan struct{}
	client Client
	err    error
}

// Session manages the connection to the database
type Session struct {
	config *Config
	dial   Dialer
	logger *zap.Logger

	mu       sync.Mutex
	state    State
	client   Client
	inflight *attempt
	waiters  map[State][]chan struct{}
}

// NewSession creates a session in the Unconnected state. A nil dialer uses
// the HTTP client.
func NewSession(cfg *Config, dial Dialer, logger *zap.Logger) *Session {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if dial == nil {
		dial = dialFunc
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		config:  cfg,
		dial:    dial,
		logger:  logger,
		waiters: make(map[State][]chan struct{}),
	}
}

// Connect opens the connection. Concurrent callers share one attempt and
// observe the same outcome; a caller whose ctx ends stops waiting without
// cancelling the attempt. A Failed session retries on the next call.
func (s *Session) Connect(ctx context.Context) (Client, error) {
	s.mu.Lock()
	switch {
	case s.state == Connected:
		client := s.client
		s.mu.Unlock()
		return client, nil
	case s.inflight != nil:
		a := s.inflight
		s.mu.Unlock()
		return wait(ctx, a)
	}

	a := &attempt{done: make(chan struct{})}
	s.inflight = a
	s.transition(Connecting)
	s.mu.Unlock()

	go s.run(context.WithoutCancel(ctx), a)
	return wait(ctx, a)
}

func (s *Session) run(ctx context.Context, a *attempt) {
	s.logger.Debug("connecting", zap.String("url", s.config.Redacted()))

	client, err := s.dial(ctx, s.config)
	if err == nil {
		if _, err = client.Info(ctx); err != nil {
			closeClient(client)
			client = nil
		}
	} else {
		client = nil
	}

	s.mu.Lock()
	if s.inflight == a {
		s.inflight = nil
		if err != nil {
			s.client = nil
			s.transition(Failed)
			s.logger.Debug("connection failed", zap.Error(err))
		} else {
			s.client = client
			s.transition(Connected)
			s.logger.Debug("connected", zap.String("url", s.config.Redacted()))
		}
		a.client, a.err = client, err
	} else {
		// Disconnect during the dial discards the outcome.
		closeClient(client)
		a.client, a.err = nil, errors.ErrNotConnected
	}
	s.mu.Unlock()
	close(a.done)
}

// closeClient releases clients that hold resources.
func closeClient(client Client) {
	if closer, ok := client.(interface{ Close() }); ok {
		closer.Close()
	}
}

func wait(ctx context.Context, a *attempt) (Client, error) {
	select {
	case <-a.done:
		return a.client, a.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// transition must be called with s.mu held.
func (s *Session) transition(to State) {
	s.state = to
	for _, ch := range s.waiters[to] {
		close(ch)
	}
	delete(s.waiters, to)
}

// Once returns a channel closed the next time the session enters state,
// or immediately when it is already in it.
func (s *Session) Once(state State) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan struct{})
	if s.state == state {
		close(ch)
		return ch
	}
	s.waiters[state] = append(s.waiters[state], ch)
	return ch
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Client returns the connected client
func (s *Session) Client() (Client, error) {
	if s == nil {
		return nil, errors.ErrNotConnected
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Connected || s.client == nil {
		return nil, errors.ErrNotConnected
	}
	return s.client, nil
}

// Ping reports whether the database answers, connecting first if needed.
func (s *Session) Ping(ctx context.Context) error {
	client, err := s.Connect(ctx)
	if err != nil {
		return err
	}
	if _, err := client.Info(ctx); err != nil {
		return Unwrap(err)
	}
	return nil
}

// Disconnect drops the client and returns to Unconnected. A subsequent
// Connect dials again.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	closeClient(s.client)
	s.client = nil
	s.inflight = nil
	s.transition(Unconnected)
}

// Config returns the session configuration
func (s *Session) Config() *Config {
	return s.config
}
