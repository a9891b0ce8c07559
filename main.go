package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/adrg/xdg"
	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"codeberg.org/anver/kbdmem/pkg/kbdmem"
	jsonstore "codeberg.org/anver/kbdmem/pkg/layoutstore/json"
	sqlitestore "codeberg.org/anver/kbdmem/pkg/layoutstore/sqlite"
	"codeberg.org/anver/kbdmem/pkg/x11"
	"codeberg.org/anver/kbdmem/pkg/xkbregistry"
)

const appName = "kbdmem"

func main() {
	err := run()
	if err != nil {
		log.Fatalf("error: %+v", err)
	}
}

func run() error {
	add := flag.Bool("add", false, "capture the focused window with the current layout, then exit")
	debug := flag.Bool("debug", false, "enable debug logging")
	storeKind := flag.String("store", "json", "store backend: json or sqlite")
	configDir := flag.String("config-dir", "", "override the config directory")
	pollInterval := flag.Duration("poll-interval", kbdmem.DefaultPollInterval, "focus poll interval")
	debounce := flag.Duration("debounce", kbdmem.DefaultDebounce, "settle time before reacting to a focus change")
	learn := flag.Bool("learn", false, "record layout switches made while a window is focused")
	evdevXMLPath := flag.String("evdev-xml-path", "/usr/share/X11/xkb/rules/evdev.xml", "path to evdev.xml, used for layout names in logs")
	xdotoolPath := flag.String("xdotool-path", "", "path to xdotool")
	xpropPath := flag.String("xprop-path", "", "path to xprop")
	xkblayoutStatePath := flag.String("xkblayout-state-path", "", "path to xkblayout-state")
	flag.Parse()

	logger, err := newLogger(*debug)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver := x11.NewResolver()
	resolver.XdotoolPath = *xdotoolPath
	resolver.XpropPath = *xpropPath

	layouts := x11.NewLayouts()
	layouts.XkblayoutStatePath = *xkblayoutStatePath

	registry, err := xkbregistry.Load(*evdevXMLPath)
	if err != nil {
		logger.Warnw("xkb registry unavailable, logging bare layout indexes", "error", err)
	} else {
		layouts.Registry = registry
	}

	dir, err := resolveConfigDir(*configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}

	store, err := openStore(*storeKind, dir, logger)
	if err != nil {
		return fmt.Errorf("open layout store: %w", err)
	}
	defer store.Close()

	if *add {
		return kbdmem.Capture(ctx, resolver, layouts, store, logger)
	}

	watcher := kbdmem.NewWatcher(resolver, layouts, store, kbdmem.WatcherConfig{
		PollInterval:   *pollInterval,
		Debounce:       *debounce,
		Learn:          *learn,
		DescribeLayout: layouts.Describe,
	}, logger)

	logger.Infow("started kbdmem", "store", *storeKind, "config_dir", dir)

	errChan := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		err := watcher.Watch(ctx)
		if err != nil {
			errChan <- fmt.Errorf("watch focus: %w", err)
		}
	}()

	go func() {
		defer wg.Done()
		err := systemdNotifyLoop(ctx)
		if err != nil {
			errChan <- fmt.Errorf("systemd notify: %w", err)
		}
	}()

	err = <-errChan
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("shutting down")
		wg.Wait()
		return nil
	case err != nil:
		return err
	}

	return nil
}

func systemdNotifyLoop(ctx context.Context) error {
	supported, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		return fmt.Errorf("notify systemd: %w", err)
	}
	if !supported {
		// not running under systemd, wait for shutdown
		<-ctx.Done()
		return ctx.Err()
	}

	_, _ = daemon.SdNotify(false, "STATUS=Remembering keyboard layouts per window")

	t, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return fmt.Errorf("check watchdog: %w", err)
	}
	if t == 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-time.After(t / 2):
			_, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			if err != nil {
				return fmt.Errorf("notify watchdog: %w", err)
			}
		}
	}
}

func resolveConfigDir(override string) (string, error) {
	dir := override
	if dir == "" {
		dir = filepath.Join(xdg.ConfigHome, appName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	return dir, nil
}

func openStore(kind, dir string, logger *zap.SugaredLogger) (kbdmem.LayoutStore, error) {
	switch kind {
	case "json":
		return jsonstore.Open(filepath.Join(dir, "layouts.json"), logger)
	case "sqlite":
		return sqlitestore.Open(filepath.Join(dir, "layouts.db"), logger)
	}

	return nil, fmt.Errorf("unknown store backend %q", kind)
}

// newLogger writes to stdout and appends to a line-oriented log file under
// the XDG state dir, so daemon and one-shot invocations share one history.
func newLogger(debug bool) (*zap.SugaredLogger, error) {
	logDir := filepath.Join(xdg.StateHome, appName)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	loggerConfig := zap.NewDevelopmentConfig()
	loggerConfig.OutputPaths = []string{"stdout", filepath.Join(logDir, appName+".log")}
	loggerConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		loggerConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		loggerConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return logger.Sugar(), nil
}
