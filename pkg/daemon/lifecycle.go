package daemon

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jamesainslie/trophy/pkg/trophy/logging"
)

// ErrDaemonAlreadyRunning is returned when a live trophyd owns the PID file.
var ErrDaemonAlreadyRunning = errors.New("daemon already running")

// WritePIDFile records the current process ID at path.
func WritePIDFile(path string) error {
	return writeFileAtomic(path, []byte(strconv.Itoa(os.Getpid())+"\n"))
}

// ReadPIDFile returns the process ID recorded at path.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("pid file %s: %w", path, err)
	}
	return pid, nil
}

// RemovePIDFile deletes the PID file. A missing file is not an error.
func RemovePIDFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// IsDaemonRunning reports whether the PID file names a live process.
func IsDaemonRunning(pidPath string) bool {
	pid, err := ReadPIDFile(pidPath)
	return err == nil && IsProcessRunning(pid)
}

// RecoverFromStaleDaemon removes what a crashed trophyd left behind: its PID
// file, its socket and the badger directory lock. It returns
// ErrDaemonAlreadyRunning when the recorded process is still alive and does
// nothing when there is no readable PID file.
func RecoverFromStaleDaemon(pidPath, socketPath, dbPath string) error {
	pid, err := ReadPIDFile(pidPath)
	if err != nil {
		return nil //nolint:nilerr // no PID file, nothing to recover
	}
	if IsProcessRunning(pid) {
		return ErrDaemonAlreadyRunning
	}

	log := logging.Get("daemon")
	for _, leftover := range []string{pidPath, socketPath, filepath.Join(dbPath, "LOCK")} {
		if err := os.Remove(leftover); err == nil {
			log.Warn("removed stale daemon file", "path", leftover, "stale_pid", pid)
		}
	}
	return nil
}

// writeFileAtomic replaces path so readers never observe a partial write.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
