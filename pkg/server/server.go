package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/fsoft72/ghostwrite/pkg/buffer"
	"github.com/fsoft72/ghostwrite/pkg/config"
	"github.com/fsoft72/ghostwrite/pkg/suggest"
)

// Server wires host connections to suggestion controllers. Config can be swapped at runtime with Reload.
type Server struct {
	provider   suggest.Provider
	cache      *suggest.Cache
	store      config.Store
	clock      suggest.Clock
	configPath string
	log        *log.Logger

	mu       sync.Mutex
	cfg      *config.Config
	apiKey   string
	sessions map[string]*session
}

// Options holds the optional collaborators of a Server.
type Options struct {
	// Store persists the API key for config requests with persist set.
	Store config.Store
	// ConfigPath is where persisted settings are written. Empty disables persisting them.
	ConfigPath string
	APIKey     string
	Clock      suggest.Clock
	Logger     *log.Logger
}

// NewServer creates a server for cfg. A nil cfg means built-in defaults.
func NewServer(cfg *config.Config, provider suggest.Provider, opts Options) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	var cache *suggest.Cache
	if cfg.Suggest.CacheEntries > 0 {
		cache = suggest.NewCache(cfg.Suggest.CacheEntries)
	}
	return &Server{
		provider:   provider,
		cache:      cache,
		store:      opts.Store,
		clock:      opts.Clock,
		configPath: opts.ConfigPath,
		log:        opts.Logger,
		cfg:        cfg,
		apiKey:     opts.APIKey,
		sessions:   make(map[string]*session),
	}
}

// Serve runs one msgpack session over r and w until r is exhausted or ctx is done.
// Logs must not go to w.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	enc := msgpack.NewEncoder(w)
	send := func(msg any) error {
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(msg)
	}

	sess := s.open(send)
	defer s.close(sess)
	go sess.loop.Run(ctx)

	if err := send(Ready{Status: "ready", Version: ProtocolVersion}); err != nil {
		return fmt.Errorf("failed to write ready message: %w", err)
	}
	log.Debug("Starting Server.", "session", sess.id)

	dec := msgpack.NewDecoder(bufio.NewReader(r))
	for {
		var req Request
		err := dec.Decode(&req)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.drain(sess)
				return nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("truncated message: %w", err)
			}
			s.log.Errorf("Decoding request: %v", err)
			sess.post(func() {
				sess.reply(Response{Status: StatusError, Error: "invalid msgpack request"})
			})
			continue
		}
		sess.post(func() { sess.handle(req) })

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// drain waits until every request queued so far has been answered.
func (s *Server) drain(sess *session) {
	done := make(chan struct{})
	sess.post(func() { close(done) })
	select {
	case <-done:
	case <-sess.loop.Done():
	}
}

// open creates a session with its own buffer, controller and loop.
func (s *Server) open(send sendFunc) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	sess := &session{
		id:        id,
		srv:       s,
		buf:       buffer.New(""),
		loop:      suggest.NewLoop(s.cfg.Server.QueueSize),
		send:      send,
		minPrefix: s.cfg.Server.MinPrefix,
		log:       s.log.With("session", id[:8]),
	}
	sess.ctrl = suggest.NewController(suggest.Config{
		Buffer:         sess.buf,
		Provider:       s.provider,
		Scheduler:      sess.loop,
		Clock:          s.clock,
		Listener:       sess,
		Vetoer:         sess,
		Cache:          s.cache,
		Settings:       s.cfg.Settings(s.apiKey),
		RequestTimeout: s.cfg.RequestTimeout(),
		Logger:         sess.log,
	})
	s.sessions[sess.id] = sess
	return sess
}

// close unregisters sess and closes its controller on the session loop.
// Once the loop has stopped nothing else touches the controller, so it is closed directly.
func (s *Server) close(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()

	done := make(chan struct{})
	sess.post(func() {
		sess.ctrl.Close()
		close(done)
	})
	select {
	case <-done:
	case <-sess.loop.Done():
		sess.ctrl.Close()
	}
}

// Sessions returns the number of open sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Reload applies a freshly loaded config to every open session. The API key is kept.
func (s *Server) Reload(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg
	settings := cfg.Settings(s.apiKey)
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	opts := settings.Options()
	opts.APIKey = nil
	for _, sess := range sessions {
		sess := sess
		sess.post(func() {
			sess.minPrefix = cfg.Server.MinPrefix
			sess.ctrl.Configure(opts)
		})
	}
	log.Debugf("Config reloaded into %d sessions", len(sessions))
}

// persist writes settings to the config file and the API key to the store.
func (s *Server) persist(o suggest.Options) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.APIKey != nil {
		s.apiKey = *o.APIKey
		if s.store != nil {
			if err := config.SaveAPIKey(s.store, *o.APIKey); err != nil {
				return fmt.Errorf("failed to store API key: %w", err)
			}
		}
	}
	if s.configPath == "" {
		return nil
	}
	if err := s.cfg.Update(s.configPath, o); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}
