// Package logging hands out per-component loggers for trophy and trophyd.
// Every component writes to one rotating file; the CLI can additionally
// mirror records to stderr.
//
//	if err := logging.Init(logging.DefaultConfig()); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Close()
//
//	logging.Get("merge").Info("merged achievements", "game", "steam:1245620", "new", 2)
//
// Loggers obtained before Init discard their output and are rebound in
// place once Init runs, so packages may cache them in package variables.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level is a logging severity.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelInfo = [...]struct {
	name  string
	charm log.Level
}{
	LevelDebug: {"debug", log.DebugLevel},
	LevelInfo:  {"info", log.InfoLevel},
	LevelWarn:  {"warn", log.WarnLevel},
	LevelError: {"error", log.ErrorLevel},
}

func (l Level) valid() bool {
	return l >= LevelDebug && l <= LevelError
}

func (l Level) String() string {
	if !l.valid() {
		return "unknown"
	}
	return levelInfo[l].name
}

func (l Level) charm() log.Level {
	if !l.valid() {
		return log.InfoLevel
	}
	return levelInfo[l].charm
}

// ErrInvalidLevel is returned for an unrecognised level name.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a level name. "warning" is accepted for LevelWarn.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warning" {
		return LevelWarn, nil
	}
	for l, info := range levelInfo {
		if info.name == name {
			return Level(l), nil
		}
	}
	return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
}

// Config configures the logging system.
type Config struct {
	// Level is the default level for every component.
	Level string

	// Path is the log file. Empty uses DefaultLogPath().
	Path string

	Rotation RotationConfig

	// Components overrides Level per component name.
	Components map[string]string

	// ConsoleLevel mirrors records at or above this level to stderr.
	// Empty disables the console.
	ConsoleLevel string
}

// Logger writes a component's records to every configured output.
type Logger struct {
	component string
	outs      []*log.Logger
}

// Debug logs at LevelDebug.
func (l *Logger) Debug(msg string, keyvals ...any) { l.emit(LevelDebug, msg, keyvals) }

// Info logs at LevelInfo.
func (l *Logger) Info(msg string, keyvals ...any) { l.emit(LevelInfo, msg, keyvals) }

// Warn logs at LevelWarn.
func (l *Logger) Warn(msg string, keyvals ...any) { l.emit(LevelWarn, msg, keyvals) }

// Error logs at LevelError.
func (l *Logger) Error(msg string, keyvals ...any) { l.emit(LevelError, msg, keyvals) }

func (l *Logger) emit(level Level, msg string, keyvals []any) {
	for _, out := range l.outs {
		out.Log(level.charm(), msg, keyvals...)
	}
}

// registry owns the shared sink and every logger handed out so far.
type registry struct {
	mu      sync.RWMutex
	loggers map[string]*Logger

	sink       *RotatingWriter
	level      Level
	overrides  map[string]Level
	console    bool
	consoleLvl Level
}

var reg = &registry{loggers: make(map[string]*Logger)}

// Init opens the log file and rebinds all existing loggers to it.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	overrides := make(map[string]Level, len(cfg.Components))
	for name, lvl := range cfg.Components {
		if overrides[name], err = ParseLevel(lvl); err != nil {
			return fmt.Errorf("parsing level for component %s: %w", name, err)
		}
	}

	var consoleLvl Level
	if cfg.ConsoleLevel != "" {
		if consoleLvl, err = ParseLevel(cfg.ConsoleLevel); err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}
	sink, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.sink != nil {
		_ = reg.sink.Close()
	}
	reg.sink = sink
	reg.level = level
	reg.overrides = overrides
	reg.console = cfg.ConsoleLevel != ""
	reg.consoleLvl = consoleLvl
	reg.rebind()
	return nil
}

// Get returns the logger for component, creating it on first use.
func Get(component string) *Logger {
	reg.mu.RLock()
	logger, ok := reg.loggers[component]
	reg.mu.RUnlock()
	if ok {
		return logger
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if logger, ok := reg.loggers[component]; ok {
		return logger
	}
	logger = &Logger{component: component}
	logger.outs = reg.outputs(component)
	reg.loggers[component] = logger
	return logger
}

// Close closes the log file. Loggers go back to discarding output.
func Close() error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if reg.sink == nil {
		return nil
	}
	err := reg.sink.Close()
	reg.sink = nil
	reg.console = false
	reg.rebind()
	if err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	return nil
}

// rebind must be called with mu held.
func (r *registry) rebind() {
	for name, logger := range r.loggers {
		logger.outs = r.outputs(name)
	}
}

// outputs must be called with mu held.
func (r *registry) outputs(component string) []*log.Logger {
	level := r.level
	if override, ok := r.overrides[component]; ok {
		level = override
	}

	if r.sink == nil {
		return []*log.Logger{log.NewWithOptions(io.Discard, log.Options{Prefix: component})}
	}

	outs := []*log.Logger{log.NewWithOptions(r.sink, log.Options{
		Level:           level.charm(),
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          component,
	})}
	if r.console {
		outs = append(outs, log.NewWithOptions(os.Stderr, log.Options{
			Level:           r.consoleLvl.charm(),
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
			Prefix:          component,
		}))
	}
	return outs
}

// DefaultLogPath returns $XDG_STATE_HOME/trophy/trophy.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "trophy", "trophy.log")
}

// DefaultConfig logs at info level to DefaultLogPath.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Path:     DefaultLogPath(),
		Rotation: DefaultRotationConfig(),
	}
}
