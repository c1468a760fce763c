package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"gamefleet/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	outputMu sync.RWMutex
	output   io.Writer = os.Stdout
)

// Init configures the global zerolog logger. File output falls back to stdout
// when the file cannot be opened.
func Init(cfg config.LogConfig) {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var sink io.Writer = os.Stdout
	var fileErr error
	if path := strings.TrimSpace(cfg.File); path != "" {
		w, err := newSizeLimitedWriter(path, cfg.MaxMB)
		if err != nil {
			fileErr = err
		} else {
			sink = w
		}
	}
	setWriter(sink)

	var out io.Writer = sink
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: sink, NoColor: sink != os.Stdout}
	}

	zerolog.SetGlobalLevel(level)
	ctx := zerolog.New(out).With().Timestamp()
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	logger := ctx.Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
	if fileErr != nil {
		log.Warn().Err(fileErr).Str("path", cfg.File).Msg("log file unavailable; writing to stdout")
	}
}

// Writer returns the sink chosen by Init, for loggers that are not zerolog.
func Writer() io.Writer {
	outputMu.RLock()
	defer outputMu.RUnlock()
	return output
}

func setWriter(w io.Writer) {
	outputMu.Lock()
	defer outputMu.Unlock()
	if old, ok := output.(*sizeLimitedWriter); ok && old != w {
		_ = old.Close()
	}
	output = w
}

// Server returns a child logger tagged with the server name.
func Server(name string) zerolog.Logger {
	return log.With().Str("server", name).Logger()
}
