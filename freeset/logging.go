package freeset

import (
	"io"
	"log/slog"
	"os"
)

// log is the package-level logger, discarding all output by default. Call
// Init before constructing a FreeSet to enable diagnostic logging.
var log *slog.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Options configures package logging.
type Options struct {
	// Enabled turns logging on. If false, all log output is discarded.
	Enabled bool
	// Level is the minimum level logged. Default: LevelInfo when enabled.
	Level slog.Level
	// Writer receives log output when Enabled. Default: os.Stderr.
	Writer io.Writer
}

// Init configures package-level logging. Call from an application's main()
// before constructing any FreeSet; a FreeSet itself holds no logger state,
// it always calls through to the package-level log.
func Init(opts Options) {
	if !opts.Enabled {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
		return
	}

	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	level := opts.Level
	if level == 0 {
		level = slog.LevelInfo
	}
	log = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
