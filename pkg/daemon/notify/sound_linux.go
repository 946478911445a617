package notify

import "context"

// No bundled cue asset on linux.
const soundSupported = false

type nopPlayer struct{}

func (nopPlayer) Play(context.Context) error { return nil }

func platformPlayer() SoundPlayer { return nopPlayer{} }
