// Package client provides a client for connecting to the trophyd daemon.
// It wraps the gRPC client with convenience methods and type conversions.
package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	trophyv1 "github.com/jamesainslie/trophy/pkg/api/trophy/v1"
	"github.com/jamesainslie/trophy/pkg/daemon"
	"github.com/jamesainslie/trophy/pkg/trophy/achievement"
	"github.com/jamesainslie/trophy/pkg/trophy/config"
)

// Client connects to the trophyd daemon via gRPC.
type Client struct {
	conn   *grpc.ClientConn
	client trophyv1.TrophyDaemonClient
}

// DaemonStatus represents the daemon's current status.
type DaemonStatus struct {
	Running  bool
	Version  string
	Uptime   time.Duration
	Memory   int64
	Games    int
	Records  int
	Unlocked int

	InitialSynced bool
	LastScan      time.Time
	LastScanNew   int

	WatchedDirs []string
	Subscribers int

	LoggedIn     bool
	Subscription bool
}

// ScanResult summarizes a catch-up pass.
type ScanResult struct {
	Games        int
	NewUnlocks   int
	GamesWithNew int
	Failed       int
}

// ResetResult reports what a reset removed.
type ResetResult struct {
	FilesRemoved  []string
	RemoteCleared bool
}

// Event is a live daemon event.
type Event struct {
	Type         string // trophyv1.EventRefresh or trophyv1.EventNotification
	Game         achievement.GameKey
	View         []achievement.Entry
	Notification *achievement.Notification
}

// DaemonPaths configures paths for daemon operations.
// Empty fields use defaults.
type DaemonPaths struct {
	Binary string // Path to trophyd binary (auto-discovered if empty)
	Socket string // Unix socket path
	PID    string // PID file path
}

// withDefaults returns a copy with empty fields filled with defaults.
func (p DaemonPaths) withDefaults() DaemonPaths {
	if p.Socket == "" {
		p.Socket = config.DefaultSocketPath()
	}
	if p.PID == "" {
		p.PID = config.DefaultPIDPath()
	}
	return p
}

// Connect establishes a connection to the trophyd daemon.
// Uses a default timeout of 5 seconds.
func Connect(socketPath string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return ConnectWithContext(ctx, socketPath)
}

// ConnectWithContext establishes a connection to the trophyd daemon with a custom context.
func ConnectWithContext(ctx context.Context, socketPath string) (*Client, error) {
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("daemon socket not found at %s", socketPath)
	}

	//nolint:staticcheck // grpc.DialContext is deprecated but NewClient doesn't support blocking
	conn, err := grpc.DialContext(
		ctx,
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}

	return &Client{
		conn:   conn,
		client: trophyv1.NewTrophyDaemonClient(conn),
	}, nil
}

// Close closes the connection to the daemon.
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// GetDaemonStatus returns the current status of the daemon.
func (c *Client) GetDaemonStatus(ctx context.Context) (*DaemonStatus, error) {
	st, err := c.client.GetStatus(ctx, &trophyv1.GetStatusRequest{})
	if err != nil {
		return nil, fmt.Errorf("GetStatus RPC failed: %w", err)
	}

	out := &DaemonStatus{
		Running:       st.Running,
		Version:       st.Version,
		Uptime:        time.Duration(st.UptimeSeconds) * time.Second,
		Memory:        st.MemoryBytes,
		Games:         st.Games,
		Records:       st.Records,
		Unlocked:      st.Unlocked,
		InitialSynced: st.InitialSynced,
		LastScanNew:   st.LastScanNew,
		WatchedDirs:   st.WatchedDirs,
		Subscribers:   st.Subscribers,
		LoggedIn:      st.LoggedIn,
		Subscription:  st.Subscription,
	}
	if st.LastScanUnix > 0 {
		out.LastScan = time.Unix(st.LastScanUnix, 0)
	}
	return out, nil
}

// Scan runs a catch-up pass over every installed game.
func (c *Client) Scan(ctx context.Context) (*ScanResult, error) {
	resp, err := c.client.PreSearch(ctx, &trophyv1.PreSearchRequest{})
	if err != nil {
		return nil, fmt.Errorf("PreSearch RPC failed: %w", err)
	}
	return &ScanResult{
		Games:        resp.Games,
		NewUnlocks:   resp.NewUnlocks,
		GamesWithNew: resp.GamesWithNew,
		Failed:       resp.Failed,
	}, nil
}

// ListAchievements returns a game and its achievement view.
func (c *Client) ListAchievements(ctx context.Context, key achievement.GameKey) (achievement.Game, []achievement.Entry, error) {
	resp, err := c.client.ListAchievements(ctx, gameRequest(key))
	if err != nil {
		return achievement.Game{}, nil, fmt.Errorf("ListAchievements RPC failed: %w", err)
	}
	return resp.Game, resp.Entries, nil
}

// Reset clears a game's local and remote progress.
func (c *Client) Reset(ctx context.Context, key achievement.GameKey) (*ResetResult, error) {
	resp, err := c.client.ResetAchievements(ctx, gameRequest(key))
	if err != nil {
		return nil, fmt.Errorf("ResetAchievements RPC failed: %w", err)
	}
	return &ResetResult{FilesRemoved: resp.FilesRemoved, RemoteCleared: resp.RemoteCleared}, nil
}

// RefreshDefinitions refetches a game's catalogue and returns its size.
func (c *Client) RefreshDefinitions(ctx context.Context, key achievement.GameKey) (int, error) {
	resp, err := c.client.RefreshDefinitions(ctx, gameRequest(key))
	if err != nil {
		return 0, fmt.Errorf("RefreshDefinitions RPC failed: %w", err)
	}
	return resp.Count, nil
}

// WatchEvents subscribes to daemon events for one game, or every game when
// key is zero. The channel closes when the stream ends or ctx is cancelled.
func (c *Client) WatchEvents(ctx context.Context, key achievement.GameKey) (<-chan Event, error) {
	stream, err := c.client.WatchEvents(ctx, gameRequest(key))
	if err != nil {
		return nil, fmt.Errorf("WatchEvents RPC failed: %w", err)
	}

	events := make(chan Event, 100)
	go func() {
		defer close(events)
		for {
			ev, err := stream.Recv()
			if err != nil {
				return // Stream closed or error
			}

			select {
			case events <- Event{
				Type:         ev.Type,
				Game:         ev.Game,
				View:         ev.View,
				Notification: ev.Notification,
			}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

// Shutdown requests the daemon to shut down gracefully.
func (c *Client) Shutdown(ctx context.Context) error {
	resp, err := c.client.Shutdown(ctx, &trophyv1.ShutdownRequest{})
	if err != nil {
		return fmt.Errorf("Shutdown RPC failed: %w", err)
	}

	if !resp.Success {
		return errors.New("shutdown request was not successful")
	}

	return nil
}

func gameRequest(key achievement.GameKey) *trophyv1.GameRequest {
	return &trophyv1.GameRequest{Shop: key.Shop, ObjectID: key.ObjectID}
}

// EnsureDaemon ensures the daemon is running, starting it if necessary.
// Idempotent: returns nil if daemon is already running.
func EnsureDaemon(paths DaemonPaths) error {
	return StartDaemon(paths)
}

// StartDaemon starts the trophyd daemon in the background.
// Idempotent: returns nil if daemon is already running.
func StartDaemon(paths DaemonPaths) error {
	paths = paths.withDefaults()

	if daemon.IsDaemonRunning(paths.PID) {
		return nil
	}

	binary, err := resolveBinary(paths.Binary)
	if err != nil {
		return fmt.Errorf("find trophyd: %w", err)
	}

	statusPath := daemon.StatusPathForSocket(paths.Socket)
	_ = daemon.RemoveStatus(statusPath)

	// Use exec.Command (not CommandContext): the daemon must outlive the caller.
	cmd := exec.Command(binary) //nolint:gosec // binary path is validated
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	if cmd.Process != nil {
		_ = cmd.Process.Release()
	}

	return waitReady(paths.Socket, statusPath, 50, 100*time.Millisecond)
}

// waitReady polls for the socket or an explicit status file.
func waitReady(socketPath, statusPath string, attempts int, interval time.Duration) error {
	for range attempts {
		time.Sleep(interval)

		if _, err := os.Stat(socketPath); err == nil {
			return nil
		}

		if status, err := daemon.ReadStatus(statusPath); err == nil {
			switch status.Status {
			case daemon.StatusReady:
				return nil
			case daemon.StatusError:
				return fmt.Errorf("daemon failed to start: %s", status.Error)
			}
		}
	}

	return errors.New("daemon did not become ready within timeout")
}

// StopDaemon stops the daemon gracefully via RPC.
// Idempotent: returns nil if daemon is not running.
func StopDaemon(paths DaemonPaths) error {
	paths = paths.withDefaults()

	if !daemon.IsDaemonRunning(paths.PID) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := ConnectWithContext(ctx, paths.Socket)
	if err != nil {
		return fmt.Errorf("connect to daemon: %w", err)
	}
	defer client.Close()

	if err := client.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown daemon: %w", err)
	}

	for range 20 {
		time.Sleep(250 * time.Millisecond)
		if !daemon.IsDaemonRunning(paths.PID) {
			return nil
		}
	}

	return errors.New("daemon did not stop within timeout")
}

// RestartDaemon stops and starts the daemon.
func RestartDaemon(paths DaemonPaths) error {
	if err := StopDaemon(paths); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if err := StartDaemon(paths); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	return nil
}

func binaryName() string {
	if runtime.GOOS == "windows" {
		return "trophyd.exe"
	}
	return "trophyd"
}

// resolveBinary finds the trophyd binary path.
// Priority: configured path > same directory as executable > GOBIN/GOPATH > PATH.
func resolveBinary(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("configured binary not found: %s", configured)
		}
		return configured, nil
	}

	name := binaryName()

	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	for _, dir := range goBinDirs() {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	return "", errors.New("trophyd not found")
}

// goBinDirs lists GOBIN, GOPATH/bin and $HOME/go/bin in that order.
func goBinDirs() []string {
	var dirs []string
	if gobin := os.Getenv("GOBIN"); gobin != "" {
		dirs = append(dirs, gobin)
	}
	if gopath := os.Getenv("GOPATH"); gopath != "" {
		dirs = append(dirs, filepath.Join(gopath, "bin"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "go", "bin"))
	}
	return dirs
}
