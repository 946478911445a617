package main

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/trophy/pkg/client"
	"github.com/jamesainslie/trophy/pkg/daemon"
)

// Build-time variables set by goreleaser or go build -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Display the version, commit hash, and build date of trophy, and the
version of the running daemon if there is one.`,
	Run: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(_ *cobra.Command, _ []string) {
	fmt.Printf("trophy %s\n", version)
	fmt.Printf("  commit:  %s\n", commit)
	fmt.Printf("  built:   %s\n", date)
	fmt.Printf("  go:      %s\n", runtime.Version())
	fmt.Printf("  os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	if v := daemonVersion(); v != "" {
		fmt.Printf("  daemon:  %s\n", v)
	}
}

// daemonVersion asks a running trophyd for its version without starting one.
func daemonVersion() string {
	if cfg == nil || !daemon.IsDaemonRunning(cfg.Daemon.PIDPath) {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := client.ConnectWithContext(ctx, cfg.Daemon.SocketPath)
	if err != nil {
		return ""
	}
	defer c.Close()

	st, err := c.GetDaemonStatus(ctx)
	if err != nil {
		return ""
	}
	return st.Version
}
