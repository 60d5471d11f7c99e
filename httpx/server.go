package httpx

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"golang.org/x/net/netutil"
	"golang.org/x/time/rate"

	"dqx0.com/go/verglas/internal/obs"
)

// Server accepts connections and serves each one on its own goroutine,
// sharing a single read-only Router between them.
type Server struct {
	addrs  []string
	router *Router

	logger           obs.Logger
	meter            obs.Meter
	readTimeout      time.Duration
	idleTimeout      time.Duration
	writeTimeout     time.Duration
	limits           Limits
	maxConns         int
	maxParseFailures int
	limiter          *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	ln      net.Listener
	closed  bool
	workers []*conn
}

// Option configures a Server.
type Option func(*Server)

func WithLogger(l obs.Logger) Option { return func(s *Server) { s.logger = obs.OrNop(l) } }

func WithMeter(m obs.Meter) Option { return func(s *Server) { s.meter = obs.MeterOrNop(m) } }

// WithReadTimeout bounds the time to read the first request on a connection.
func WithReadTimeout(d time.Duration) Option { return func(s *Server) { s.readTimeout = d } }

// WithIdleTimeout bounds the wait for each request after the first.
func WithIdleTimeout(d time.Duration) Option { return func(s *Server) { s.idleTimeout = d } }

func WithWriteTimeout(d time.Duration) Option { return func(s *Server) { s.writeTimeout = d } }

func WithLimits(l Limits) Option { return func(s *Server) { s.limits = l } }

// WithMaxConns caps the number of simultaneously open connections.
func WithMaxConns(n int) Option { return func(s *Server) { s.maxConns = n } }

// WithMaxParseFailures closes a connection after n consecutive unparsable
// requests.
func WithMaxParseFailures(n int) Option { return func(s *Server) { s.maxParseFailures = n } }

// WithAcceptRate limits how fast new connections are accepted.
func WithAcceptRate(r rate.Limit, burst int) Option {
	return func(s *Server) {
		if r > 0 {
			s.limiter = rate.NewLimiter(r, burst)
		}
	}
}

// NewServer returns a server for router that will listen on the first
// usable address in addrs. Without options no timeouts or caps apply.
func NewServer(addrs []string, router *Router, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		addrs:  append([]string(nil), addrs...),
		router: router,
		logger: obs.NopLogger{},
		meter:  obs.NopMeter{},
		ctx:    ctx,
		cancel: cancel,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Listen binds the first address in the list that can be bound.
func (s *Server) Listen() error {
	if len(s.addrs) == 0 {
		return ErrNoAddress
	}
	var err error
	for _, addr := range s.addrs {
		var ln net.Listener
		ln, err = net.Listen("tcp", addr)
		if err == nil {
			s.mu.Lock()
			s.ln = ln
			s.mu.Unlock()
			return nil
		}
		s.logger.Logf(obs.Warn, "listen %s: %v", addr, err)
	}
	return err
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Run listens and serves until Shutdown. It panics if no address can be
// bound or the listener fails.
func (s *Server) Run() {
	if s.Addr() == nil {
		if err := s.Listen(); err != nil {
			panic(err)
		}
	}
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if err := s.Serve(ln); err != nil && !errors.Is(err, ErrServerClosed) {
		panic(err)
	}
}

// Serve accepts connections on ln until Shutdown is called. Accept errors
// are logged and do not stop the loop.
func (s *Server) Serve(ln net.Listener) error {
	if s.maxConns > 0 {
		ln = netutil.LimitListener(ln, s.maxConns)
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.ln = ln
	s.mu.Unlock()
	defer ln.Close()

	s.logger.Logf(obs.Info, "listening on %s with %d routes", ln.Addr(), s.router.Len())

	var tempDelay time.Duration
	for {
		if s.limiter != nil {
			if err := s.limiter.Wait(s.ctx); err != nil {
				return ErrServerClosed
			}
		}
		rwc, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.meter.Counter(obs.MetricAcceptErrors, 1)
			s.logger.Logf(obs.Error, "failed to establish connection: %v", err)
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if limit := time.Second; tempDelay > limit {
				tempDelay = limit
			}
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0
		s.meter.Counter(obs.MetricConnsAccepted, 1)

		c := newConn(s, rwc)
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			rwc.Close()
			return ErrServerClosed
		}
		s.reapLocked()
		s.workers = append(s.workers, c)
		s.mu.Unlock()
		go c.serve()
	}
}

// reapLocked drops bookkeeping for connections that have finished.
func (s *Server) reapLocked() {
	live := s.workers[:0]
	for _, c := range s.workers {
		if !c.finished() {
			live = append(live, c)
		}
	}
	for i := len(live); i < len(s.workers); i++ {
		s.workers[i] = nil
	}
	s.workers = live
}

// ActiveConns returns the number of connections still being served.
func (s *Server) ActiveConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reapLocked()
	return len(s.workers)
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Shutdown stops accepting connections and waits for open ones to finish.
// When ctx ends first, the remaining connections are closed forcibly and
// ctx's error is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.cancel()
	if s.ln != nil {
		s.ln.Close()
	}
	workers := append([]*conn(nil), s.workers...)
	s.mu.Unlock()

	for _, c := range workers {
		select {
		case <-c.done:
		case <-ctx.Done():
			for _, c := range workers {
				c.rwc.Close()
			}
			return ctx.Err()
		}
	}
	return nil
}
