package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/grpc"

	trophyv1 "github.com/jamesainslie/trophy/pkg/api/trophy/v1"
	"github.com/jamesainslie/trophy/pkg/daemon/broadcaster"
	"github.com/jamesainslie/trophy/pkg/daemon/library"
	"github.com/jamesainslie/trophy/pkg/daemon/merge"
	"github.com/jamesainslie/trophy/pkg/daemon/notify"
	"github.com/jamesainslie/trophy/pkg/daemon/reconciler"
	"github.com/jamesainslie/trophy/pkg/daemon/remote"
	"github.com/jamesainslie/trophy/pkg/daemon/store"
	"github.com/jamesainslie/trophy/pkg/daemon/watcher"
	"github.com/jamesainslie/trophy/pkg/trophy/logging"
)

// Config holds daemon configuration.
type Config struct {
	SocketPath  string
	DBPath      string // badger directory for achievement records
	LibraryPath string // sqlite game library

	Language     string
	PollInterval time.Duration

	// Nudges enables filesystem events as early watch ticks.
	Nudges        bool
	NudgeDebounce time.Duration

	// Remote enables definition fetches and profile sync. Nil disables them.
	Remote *remote.Config

	Notifications bool
	Sound         bool

	// Sinks receive notifications in addition to the log and live clients.
	Sinks []notify.Sink

	Version string
}

// Server is the trophyd RPC server and the reconciliation loop behind it.
type Server struct {
	cfg      Config
	grpc     *grpc.Server
	listener net.Listener

	store       *store.Store
	library     *library.Library
	broadcaster *broadcaster.Broadcaster
	watcher     *watcher.Watcher
	reconciler  *reconciler.Reconciler
	service     *Service

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// NewServer opens the daemon's stores and binds its socket.
func NewServer(cfg Config) (_ *Server, err error) {
	log := logging.Get("daemon")

	srv := &Server{cfg: cfg}
	srv.ctx, srv.cancel = context.WithCancel(context.Background())
	defer func() {
		if err != nil {
			_ = srv.release()
		}
	}()

	if srv.store, err = store.Open(cfg.DBPath); err != nil {
		return nil, err
	}
	migrated, err := srv.store.Migrate(srv.ctx, func(p store.MigrationProgress) {
		log.Info("migrating achievement store", "from", p.FromVersion, "to", p.ToVersion,
			"done", p.RecordsDone, "total", p.RecordsTotal)
	})
	if err != nil {
		return nil, fmt.Errorf("migrating store: %w", err)
	}
	if migrated > 0 {
		log.Info("achievement store migrated", "steps", migrated)
	}

	if srv.library, err = library.Open(cfg.LibraryPath); err != nil {
		return nil, err
	}

	var (
		client     *remote.Client
		mergeR     merge.Remote
		reconcileR reconciler.Remote
	)
	if cfg.Remote != nil {
		client = remote.New(*cfg.Remote)
		mergeR, reconcileR = client, client
	}

	srv.broadcaster = broadcaster.New()
	b := srv.broadcaster

	sinks := append([]notify.Sink{notify.NewLogSink(), notify.NewBroadcastSink(b)}, cfg.Sinks...)
	emitter := notify.New(notify.Options{
		Enabled: cfg.Notifications,
		Sound:   cfg.Sound,
		// A connected event stream stands in for a visible window.
		Focused: func() bool { return b.SubscriberCount() > 0 },
		Sinks:   sinks,
	})

	engine := merge.New(srv.store, mergeR, emitter, b)

	if cfg.Nudges {
		if srv.watcher, err = watcher.New(cfg.NudgeDebounce); err != nil {
			return nil, fmt.Errorf("creating watcher: %w", err)
		}
	}

	opts := reconciler.Options{Language: cfg.Language}
	if srv.watcher != nil {
		opts.Observe = srv.watcher.Sync
	}
	srv.reconciler = reconciler.New(srv.library, srv.store, reconcileR, engine, emitter, opts)

	srv.service = NewService(srv.store, srv.library, srv.reconciler, b)
	srv.service.SetWatcher(srv.watcher)
	srv.service.SetRemote(client)
	srv.service.SetVersion(cfg.Version)
	srv.service.SetShutdownFunc(func() { _ = srv.Close() })

	// Remove stale socket if exists
	if err := os.RemoveAll(cfg.SocketPath); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.SocketPath), 0755); err != nil {
		return nil, err
	}

	var lc net.ListenConfig
	if srv.listener, err = lc.Listen(srv.ctx, "unix", cfg.SocketPath); err != nil {
		return nil, err
	}

	srv.grpc = grpc.NewServer()
	trophyv1.RegisterTrophyDaemonServer(srv.grpc, srv.service)

	return srv, nil
}

// Serve starts the reconciliation loop and the RPC server. It blocks until
// the server is closed.
func (s *Server) Serve() error {
	var nudges <-chan struct{}
	if s.watcher != nil {
		nudges = s.watcher.Nudges()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.watcher.Run(s.ctx)
		}()
	}

	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.reconciler.Run(s.ctx, interval, nudges)
	}()

	err := s.grpc.Serve(s.listener)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Close stops the server and cleans up. It is safe to call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		// Live event streams end when their subscriptions close.
		s.broadcaster.Close()
		s.grpc.GracefulStop()
		s.wg.Wait()
		s.closeErr = s.release()
		if err := os.RemoveAll(s.cfg.SocketPath); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
		logging.Get("daemon").Info("daemon stopped")
	})
	return s.closeErr
}

// release closes whatever NewServer managed to open.
func (s *Server) release() error {
	s.cancel()

	var errs []error
	if s.listener != nil && s.grpc == nil {
		errs = append(errs, s.listener.Close())
	}
	if s.watcher != nil {
		errs = append(errs, s.watcher.Close())
	}
	if s.library != nil {
		errs = append(errs, s.library.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}
