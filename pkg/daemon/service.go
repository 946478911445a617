package daemon

import (
	"context"
	"errors"
	"runtime"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	trophyv1 "github.com/jamesainslie/trophy/pkg/api/trophy/v1"
	"github.com/jamesainslie/trophy/pkg/daemon/broadcaster"
	"github.com/jamesainslie/trophy/pkg/daemon/library"
	"github.com/jamesainslie/trophy/pkg/daemon/reconciler"
	"github.com/jamesainslie/trophy/pkg/daemon/remote"
	"github.com/jamesainslie/trophy/pkg/daemon/store"
	"github.com/jamesainslie/trophy/pkg/daemon/watcher"
	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
	"github.com/jamesainslie/trophy/pkg/trophy/logging"
)

// Service implements the TrophyDaemon RPC service.
type Service struct {
	trophyv1.UnimplementedTrophyDaemonServer

	store       *store.Store
	library     *library.Library
	reconciler  *reconciler.Reconciler
	broadcaster *broadcaster.Broadcaster
	watcher     *watcher.Watcher
	remote      *remote.Client
	version     string
	startTime   time.Time

	onShutdown func()
}

// NewService creates the RPC service over the daemon's components. The
// watcher and remote client may be nil.
func NewService(st *store.Store, lib *library.Library, rec *reconciler.Reconciler, b *broadcaster.Broadcaster) *Service {
	return &Service{
		store:       st,
		library:     lib,
		reconciler:  rec,
		broadcaster: b,
		startTime:   time.Now(),
	}
}

// SetWatcher sets the filesystem watcher reported in status.
func (s *Service) SetWatcher(w *watcher.Watcher) {
	s.watcher = w
}

// SetRemote sets the remote client reported in status.
func (s *Service) SetRemote(c *remote.Client) {
	s.remote = c
}

// SetVersion sets the version reported in status.
func (s *Service) SetVersion(v string) {
	s.version = v
}

// SetShutdownFunc sets the callback run after a Shutdown RPC returns.
func (s *Service) SetShutdownFunc(fn func()) {
	s.onShutdown = fn
}

// GetStatus returns daemon health and reconciliation progress.
func (s *Service) GetStatus(ctx context.Context, _ *trophyv1.GetStatusRequest) (*trophyv1.Status, error) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	st := &trophyv1.Status{
		Running:       true,
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		MemoryBytes:   int64(mem.Alloc),
		InitialSynced: s.reconciler.InitialSynced(),
		Subscribers:   s.broadcaster.SubscriberCount(),
	}

	if games, err := s.library.ListInstalled(ctx); err == nil {
		st.Games = len(games)
	}
	if records, unlocked, err := s.store.CountRecords(); err == nil {
		st.Records = records
		st.Unlocked = unlocked
	}
	if last, n := s.reconciler.LastScan(); !last.IsZero() {
		st.LastScanUnix = last.Unix()
		st.LastScanNew = n
	}
	if s.watcher != nil {
		st.WatchedDirs = s.watcher.Paths()
	}
	if s.remote != nil {
		st.LoggedIn = s.remote.LoggedIn()
		st.Subscription = s.remote.HasActiveSubscription()
	}

	return st, nil
}

// PreSearch runs a catch-up pass over the library.
func (s *Service) PreSearch(ctx context.Context, _ *trophyv1.PreSearchRequest) (*trophyv1.PreSearchResponse, error) {
	res, err := s.reconciler.PreSearch(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "catch-up pass: %v", err)
	}
	return &trophyv1.PreSearchResponse{
		Games:        res.Games,
		NewUnlocks:   res.NewUnlocks,
		GamesWithNew: res.GamesWithNew,
		Failed:       res.Failed,
	}, nil
}

// ListAchievements returns a game's achievement view. Definitions are
// fetched on first use when the remote API is available.
func (s *Service) ListAchievements(ctx context.Context, req *trophyv1.ListAchievementsRequest) (*trophyv1.ListAchievementsResponse, error) {
	game, err := s.game(ctx, req)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.Load(game.Key())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "loading record: %v", err)
	}

	if len(rec.Achievements) == 0 {
		if err := s.reconciler.RefreshDefinitions(ctx, game.Key()); err == nil {
			if fresh, err := s.store.Load(game.Key()); err == nil {
				rec = fresh
			}
		} else if !errors.Is(err, reconciler.ErrNoRemote) {
			logging.Get("daemon").Debug("definitions unavailable", "game", game.Key().String(), "error", err)
		}
	}

	return &trophyv1.ListAchievementsResponse{
		Game:    game,
		Entries: achievement.BuildView(rec.Achievements, rec.UnlockedAchievements),
	}, nil
}

// ResetAchievements clears a game's progress.
func (s *Service) ResetAchievements(ctx context.Context, req *trophyv1.ResetAchievementsRequest) (*trophyv1.ResetAchievementsResponse, error) {
	game, err := s.game(ctx, req)
	if err != nil {
		return nil, err
	}

	res, err := s.reconciler.Reset(ctx, game)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "reset: %v", err)
	}

	if rec, err := s.store.Load(game.Key()); err == nil {
		s.broadcaster.PublishRefresh(game.Key(), achievement.BuildView(rec.Achievements, rec.UnlockedAchievements))
	}

	return &trophyv1.ResetAchievementsResponse{
		FilesRemoved:  res.FilesRemoved,
		RemoteCleared: res.RemoteCleared,
	}, nil
}

// RefreshDefinitions refetches a game's catalogue.
func (s *Service) RefreshDefinitions(ctx context.Context, req *trophyv1.RefreshDefinitionsRequest) (*trophyv1.RefreshDefinitionsResponse, error) {
	key := req.Key()
	if err := s.reconciler.RefreshDefinitions(ctx, key); err != nil {
		if errors.Is(err, reconciler.ErrNoRemote) {
			return nil, status.Error(codes.FailedPrecondition, err.Error())
		}
		return nil, status.Errorf(codes.Unavailable, "%v", err)
	}

	rec, err := s.store.Load(key)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "loading record: %v", err)
	}
	return &trophyv1.RefreshDefinitionsResponse{Count: len(rec.Achievements)}, nil
}

// WatchEvents streams refresh and notification events.
func (s *Service) WatchEvents(req *trophyv1.WatchEventsRequest, stream grpc.ServerStreamingServer[trophyv1.Event]) error {
	sub := s.broadcaster.Subscribe(req.Key())
	if sub == nil {
		return status.Error(codes.Unavailable, "daemon shutting down")
	}
	defer s.broadcaster.Unsubscribe(sub.ID)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events:
			if !ok {
				return nil
			}
			out := &trophyv1.Event{
				Type:         ev.Type.String(),
				Game:         ev.Game,
				View:         ev.View,
				Notification: ev.Notification,
			}
			if err := stream.Send(out); err != nil {
				return err
			}
		}
	}
}

// Shutdown gracefully shuts down the daemon.
func (s *Service) Shutdown(_ context.Context, _ *trophyv1.ShutdownRequest) (*trophyv1.ShutdownResponse, error) {
	logging.Get("daemon").Info("shutdown requested")
	if s.onShutdown != nil {
		// The server drains in-flight RPCs, this one included.
		go s.onShutdown()
	}
	return &trophyv1.ShutdownResponse{Success: true}, nil
}

func (s *Service) game(ctx context.Context, req *trophyv1.GameRequest) (achievement.Game, error) {
	key := req.Key()
	if key.Shop == "" || key.ObjectID == "" {
		return achievement.Game{}, status.Error(codes.InvalidArgument, "shop and objectId are required")
	}

	game, err := s.library.Get(ctx, key)
	if errors.Is(err, library.ErrGameNotFound) {
		return achievement.Game{}, status.Errorf(codes.NotFound, "game %s not in library", key)
	}
	if err != nil {
		return achievement.Game{}, status.Errorf(codes.Internal, "loading game: %v", err)
	}
	return game, nil
}
