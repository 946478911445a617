package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Startup states written to the status file.
const (
	StatusReady = "ready"
	StatusError = "error"
)

// StatusFile is how trophyd tells a launching client whether startup
// succeeded. The client polls it alongside the socket.
type StatusFile struct {
	Status  string    `json:"status"`
	PID     int       `json:"pid,omitempty"`
	Error   string    `json:"error,omitempty"`
	Written time.Time `json:"written"`
}

// WriteStatusReady marks startup as complete.
func WriteStatusReady(path string) error {
	return writeStatus(path, StatusFile{Status: StatusReady, PID: os.Getpid()})
}

// WriteStatusError records why startup failed.
func WriteStatusError(path string, err error) error {
	return writeStatus(path, StatusFile{Status: StatusError, Error: err.Error()})
}

func writeStatus(path string, sf StatusFile) error {
	sf.Written = time.Now().UTC()
	data, err := json.Marshal(sf)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// ReadStatus reads a status file.
func ReadStatus(path string) (*StatusFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sf StatusFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("status file %s: %w", path, err)
	}
	return &sf, nil
}

// RemoveStatus deletes the status file.
func RemoveStatus(path string) error {
	return os.Remove(path)
}

// StatusPath is trophy.status inside the data directory.
func StatusPath(dataDir string) string {
	return filepath.Join(dataDir, "trophy.status")
}

// StatusPathForSocket swaps the socket's extension for ".status". With the
// default socket path this equals StatusPath(dataDir).
func StatusPathForSocket(socketPath string) string {
	return strings.TrimSuffix(socketPath, filepath.Ext(socketPath)) + ".status"
}
