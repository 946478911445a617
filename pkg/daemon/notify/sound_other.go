//go:build !linux

package notify

import (
	"context"
	"os/exec"
	"runtime"
)

const soundSupported = true

type commandPlayer struct {
	name string
	args []string
}

func (p commandPlayer) Play(ctx context.Context) error {
	if p.name == "" {
		return nil
	}
	return exec.CommandContext(ctx, p.name, p.args...).Run()
}

func platformPlayer() SoundPlayer {
	switch runtime.GOOS {
	case "darwin":
		return commandPlayer{name: "afplay", args: []string{"/System/Library/Sounds/Glass.aiff"}}
	case "windows":
		return commandPlayer{name: "powershell", args: []string{
			"-NoProfile", "-Command", "[System.Media.SystemSounds]::Asterisk.Play()",
		}}
	default:
		return commandPlayer{}
	}
}
