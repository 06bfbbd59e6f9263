package newcamd

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/barnettlynn/ncamd/internal/logging"
)

const (
	// MaxConns is the hard cap on concurrently accepted connections (§4.8).
	MaxConns = 256

	defaultSocketTimeout = 30 * time.Second
	acceptPollInterval   = 1 * time.Second
	drainTimeout         = 5 * time.Second
	drainPollInterval    = 100 * time.Millisecond
)

// Metrics is the minimal surface the core reports to; internal/metrics
// implements it over prometheus. NewServer installs a no-op implementation;
// Server.Metrics is called without a nil check, so it is never set to nil.
type Metrics interface {
	ConnOpened()
	ConnClosed()
	ECMDecoded(hit bool)
	CacheHit()
	CacheMiss()
	BanIssued()
}

type noopMetrics struct{}

func (noopMetrics) ConnOpened()       {}
func (noopMetrics) ConnClosed()       {}
func (noopMetrics) ECMDecoded(bool)   {}
func (noopMetrics) CacheHit()         {}
func (noopMetrics) CacheMiss()        {}
func (noopMetrics) BanIssued()        {}

// ChannelNameLookup resolves a (caid, sid) pair to a human-readable channel
// name for logging only (§6 "Channel-name lookup contract").
type ChannelNameLookup interface {
	Lookup(caid, sid uint16) (string, bool)
}

type noopChannelNames struct{}

func (noopChannelNames) Lookup(uint16, uint16) (string, bool) { return "", false }

// ClientNameLookup resolves a service-id to a logging-only client name.
type ClientNameLookup interface {
	ClientName(sid uint16) string
}

type noopClientNames struct{}

func (noopClientNames) ClientName(uint16) string { return "" }

// ServerConfig is the configuration contract the core requires from its
// external config collaborator (§6).
type ServerConfig struct {
	Addr          string
	SocketTimeout time.Duration
	RootKey       [14]byte
}

// Server is the root object bundling every shared resource (§9 Design
// Notes: "model these as fields of a Server root object ... one lock per
// logical resource") instead of relying on package-level globals.
type Server struct {
	cfg atomic.Pointer[ServerConfig]

	Store       *AccountStore
	Bans        *BanTable
	Cache       *CWCache
	Clients     *ClientRegistry
	Decoders    *decoderRegistry
	Log         *logging.Logger
	Metrics     Metrics
	ChannelName ChannelNameLookup
	ClientNames ClientNameLookup

	// ReloadFunc, if set, is invoked when the reload flag is observed; its
	// result (fresh accounts read from the config collaborator) is passed
	// to Reload. A nil ReloadFunc or a returned error just logs and skips
	// the reload for that poll.
	ReloadFunc func() ([]*Account, error)

	listener net.Listener

	running  int32
	reload   int32
	wg       sync.WaitGroup
	mu       sync.Mutex // guards listener lifecycle only
}

// NewServer builds a Server ready to Run. store and log must be non-nil;
// the ban table, CW cache, client registry and decoders are created fresh,
// and metrics and the channel/client name lookups default to no-ops.
func NewServer(cfg ServerConfig, store *AccountStore, log *logging.Logger) *Server {
	s := &Server{
		Store:       store,
		Bans:        NewBanTable(),
		Cache:       NewCWCache(),
		Clients:     NewClientRegistry(MaxConns),
		Decoders:    newDecoderRegistry(),
		Log:         log,
		Metrics:     noopMetrics{},
		ChannelName: noopChannelNames{},
		ClientNames: noopClientNames{},
	}
	s.cfg.Store(&cfg)
	return s
}

func (s *Server) config() ServerConfig { return *s.cfg.Load() }

// RequestReload sets the reload flag; the accept loop checks it once per
// iteration (§4.8).
func (s *Server) RequestReload() { atomic.StoreInt32(&s.reload, 1) }

// Reload replaces the account store and rebinds every live client,
// matching the §4.6 reload protocol exactly.
func (s *Server) Reload(accounts []*Account) {
	s.Store.Replace(accounts)
	s.Clients.Each(func(c *Client) {
		c.rebind(s.Store)
	})
	s.Log.Info(logging.CatConfig, "reload: account store replaced (%d accounts), clients rebound", len(accounts))
}

// Run binds the listener and accepts connections until Shutdown is called.
func (s *Server) Run() error {
	cfg := s.config()
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("newcamd: listen %s: %w", cfg.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	atomic.StoreInt32(&s.running, 1)
	s.Log.Info(logging.CatNet, "listening on %s", cfg.Addr)

	tl, ok := ln.(*net.TCPListener)
	for atomic.LoadInt32(&s.running) == 1 {
		if atomic.CompareAndSwapInt32(&s.reload, 1, 0) {
			s.Log.Info(logging.CatConfig, "reload flag observed")
			if s.ReloadFunc != nil {
				accounts, err := s.ReloadFunc()
				if err != nil {
					s.Log.Warn("reload: %v", err)
				} else {
					s.Reload(accounts)
				}
			}
		}

		if ok {
			_ = tl.SetDeadline(time.Now().Add(acceptPollInterval))
		}
		conn, err := ln.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if atomic.LoadInt32(&s.running) == 0 {
				return nil
			}
			s.Log.Warn("accept error: %v", err)
			continue
		}

		if s.Clients.Len() >= MaxConns {
			s.Log.Info(logging.CatNet, "rejecting %s: at MAX_CONNS=%d", conn.RemoteAddr(), MaxConns)
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serve(conn)
		}()
	}
	return nil
}

// Shutdown stops accepting connections, closes the listener, and waits up
// to drainTimeout for active connections to finish (§4.8).
func (s *Server) Shutdown() {
	atomic.StoreInt32(&s.running, 0)
	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()

	deadline := time.Now().Add(drainTimeout)
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	for {
		select {
		case <-done:
			return
		default:
		}
		if time.Now().After(deadline) {
			return
		}
		time.Sleep(drainPollInterval)
	}
}
