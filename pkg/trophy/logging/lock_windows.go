//go:build windows

package logging

import "os"

// No advisory locking on windows.
func lockFile(_ *os.File) error { return nil }

func unlockFile(_ *os.File) {}
