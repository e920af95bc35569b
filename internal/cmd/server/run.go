package serverrun

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	cfgpkg "github.com/rzbill/rangeflow/internal/config"
	"github.com/rzbill/rangeflow/internal/runtime"
	httpserver "github.com/rzbill/rangeflow/internal/server/http"
	pebblestore "github.com/rzbill/rangeflow/internal/storage/pebble"
	logpkg "github.com/rzbill/rangeflow/pkg/log"
)

// Options configure one server process.
type Options struct {
	DataDir       string
	HTTPAddr      string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
}

// loggerFromConfig builds the process logger from the Log section, falling
// back to info/text on bad values.
func loggerFromConfig(cfg cfgpkg.LogConfig) logpkg.Logger {
	level, err := logpkg.ParseLevel(cfg.Level)
	if err != nil {
		level = logpkg.InfoLevel
	}
	format := logpkg.FormatText
	if cfg.Format == string(logpkg.FormatJSON) {
		format = logpkg.FormatJSON
	}
	return logpkg.NewLogger(logpkg.WithLevel(level), logpkg.WithFormat(format))
}

// ParseFsync maps a config string onto a pebblestore mode.
func ParseFsync(s string) (pebblestore.FsyncMode, error) {
	switch s {
	case "", "always":
		return pebblestore.FsyncModeAlways, nil
	case "interval":
		return pebblestore.FsyncModeInterval, nil
	case "never":
		return pebblestore.FsyncModeNever, nil
	}
	return 0, fmt.Errorf("invalid fsync mode %q; use always|interval|never", s)
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// listener fails.
func Run(ctx context.Context, opts Options) error {
	// Layer a local signal context over the caller's so SIGTERM is
	// observed even when the caller passes context.Background().
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	storeDir := filepath.Join(opts.DataDir, "store")

	logger := loggerFromConfig(opts.Config.Log)
	// Pebble logs through the stdlib logger.
	logpkg.RedirectStdLog(logger)

	rt, err := runtime.Open(runtime.Options{
		DataDir:       storeDir,
		Fsync:         opts.Fsync,
		FsyncInterval: int(opts.FsyncInterval / time.Millisecond),
		Config:        opts.Config,
		Logger:        logger,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	logger.Info("starting rangeflow server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("data_dir", opts.DataDir),
		logpkg.Str("level", opts.Config.Log.Level),
		logpkg.Str("format", opts.Config.Log.Format),
	)

	hsrv := httpserver.New(rt, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- hsrv.ListenAndServe(sctx, opts.HTTPAddr) }()

	select {
	case <-sctx.Done():
		hsrv.Close()
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}
