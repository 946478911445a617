//go:build stave

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/yaklabco/stave/pkg/sh"
	"github.com/yaklabco/stave/pkg/st"
)

// Default target when running `stave` with no arguments.
var Default = Build

// Aliases for common targets.
var Aliases = map[string]interface{}{
	"b": Build,
	"t": Test,
	"l": Lint,
	"i": Install,
	"c": Clean,
}

const (
	modulePath = "github.com/jamesainslie/trophy"
	binDir     = "bin"
)

// binaries are built from ./cmd/<name>.
var binaries = []string{"trophy", "trophyd"}

// sourceDirs holds the module's own code, leaving reference trees alone.
var sourceDirs = []string{"cmd", "pkg"}

// All runs the complete build pipeline.
func All() error {
	st.Deps(Lint, Test)
	st.Deps(Build)
	return nil
}

// Build compiles the trophy CLI and the trophyd daemon.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating bin directory: %w", err)
	}

	version, commit, date := buildInfo()
	for _, name := range binaries {
		ldflags := buildLdflags(name, version, commit, date)
		if err := sh.RunV("go", "build", "-ldflags", ldflags, "-o", exeName(filepath.Join(binDir, name)), "./cmd/"+name); err != nil {
			return fmt.Errorf("building %s: %w", name, err)
		}
	}
	return nil
}

// Install builds and installs both binaries side by side, so the CLI can
// find the daemon next to itself.
func Install() error {
	st.Deps(Build)

	bin, err := installDir()
	if err != nil {
		return err
	}

	for _, name := range binaries {
		src := exeName(filepath.Join(binDir, name))
		dst := exeName(filepath.Join(bin, name))
		if st.Verbose() {
			fmt.Printf("Installing %s to %s\n", src, dst)
		}
		if err := sh.Copy(dst, src); err != nil {
			return fmt.Errorf("installing %s: %w", name, err)
		}
	}
	return nil
}

// Uninstall removes the installed binaries.
func Uninstall() error {
	bin, err := installDir()
	if err != nil {
		return err
	}

	for _, name := range binaries {
		target := exeName(filepath.Join(bin, name))
		if _, err := os.Stat(target); os.IsNotExist(err) {
			if st.Verbose() {
				fmt.Printf("Binary not found at %s, nothing to uninstall\n", target)
			}
			continue
		}
		if st.Verbose() {
			fmt.Printf("Removing %s\n", target)
		}
		if err := os.Remove(target); err != nil {
			return err
		}
	}
	return nil
}

// installDir returns GOBIN, GOPATH/bin or /usr/local/bin, in that order.
func installDir() (string, error) {
	gocmd := st.GoCmd()
	bin, err := sh.Output(gocmd, "env", "GOBIN")
	if err != nil {
		return "", fmt.Errorf("determining GOBIN: %w", err)
	}
	if bin != "" {
		return bin, nil
	}

	gopath, err := sh.Output(gocmd, "env", "GOPATH")
	if err != nil {
		return "", fmt.Errorf("determining GOPATH: %w", err)
	}
	if gopath != "" {
		return filepath.Join(gopath, "bin"), nil
	}
	return "/usr/local/bin", nil
}

func exeName(path string) string {
	if runtime.GOOS == "windows" {
		return path + ".exe"
	}
	return path
}

// Test runs all tests with race detection and coverage.
func Test() error {
	return sh.RunV("go", "test", "-race", "-cover", "./...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if st.Verbose() {
		fmt.Printf("Removing %s/\n", binDir)
	}
	return sh.Rm(binDir + "/")
}

// Fmt formats all Go code.
func Fmt() error {
	args := append([]string{"-w"}, sourceDirs...)
	if err := sh.Run("gofmt", args...); err != nil {
		return fmt.Errorf("running gofmt: %w", err)
	}
	return sh.Run("goimports", args...)
}

// Tidy runs go mod tidy.
func Tidy() error {
	return sh.RunV("go", "mod", "tidy")
}

// buildInfo describes the working tree for version injection.
func buildInfo() (version, commit, date string) {
	version, commit = "dev", "unknown"
	date = time.Now().Format(time.RFC3339)

	if v, err := sh.Output("git", "describe", "--tags", "--always"); err == nil && v != "" {
		version = strings.TrimSpace(v)
	}
	if c, err := sh.Output("git", "rev-parse", "--short", "HEAD"); err == nil && c != "" {
		commit = strings.TrimSpace(c)
	}
	return version, commit, date
}

// buildLdflags returns ldflags for one binary. Only the CLI carries commit
// and date.
func buildLdflags(name, version, commit, date string) string {
	pkg := modulePath + "/cmd/" + name
	if name != "trophy" {
		return fmt.Sprintf("-X %s.version=%s", pkg, version)
	}
	return fmt.Sprintf(
		"-X %s.version=%s -X %s.commit=%s -X %s.date=%s",
		pkg, version, pkg, commit, pkg, date,
	)
}
