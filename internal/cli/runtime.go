package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/awnumar/memguard"
	"github.com/charmbracelet/huh"

	"github.com/typicalmohit/tinku-ji/internal/app"
	"github.com/typicalmohit/tinku-ji/internal/config"
	"github.com/typicalmohit/tinku-ji/internal/crypto"
	"github.com/typicalmohit/tinku-ji/internal/filestore"
	logpkg "github.com/typicalmohit/tinku-ji/internal/log"
	"github.com/typicalmohit/tinku-ji/internal/metrics"
	"github.com/typicalmohit/tinku-ji/internal/session"
	"github.com/typicalmohit/tinku-ji/internal/storage"
)

const sessionMarkerName = "session"

var loadConfigFn = config.Load

// runtimeEnv is the wiring shared by every data command.
type runtimeEnv struct {
	cfg       config.Config
	logger    *slog.Logger
	recorder  *metrics.Recorder
	store     *storage.Store
	files     *filestore.Store
	session   *session.Manager
	bookings  *app.BookingService
	documents *app.DocumentService
	sweeper   *app.Sweeper
}

// currentUserID returns the signed-in user or ErrNotSignedIn.
func (r *runtimeEnv) currentUserID() (string, error) {
	user, ok := r.session.Profile()
	if !ok {
		return "", session.ErrNotSignedIn
	}
	return user.ID, nil
}

func loadCommandConfig(deps commandDeps) (config.Config, error) {
	cfg, err := loadConfigFn(commandLoadOptions(deps.globals))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func commandLoadOptions(globals *GlobalOptions) config.LoadOptions {
	opts := config.LoadOptions{}
	if globals == nil {
		return opts
	}
	if configPath := strings.TrimSpace(globals.ConfigPath); configPath != "" {
		opts.ConfigPath = configPath
	}
	if dataDir := strings.TrimSpace(globals.DataDir); dataDir != "" {
		opts.Flags.DataDir = &dataDir
	}
	if globals.Metrics {
		enabled := true
		opts.Flags.MetricsEnabled = &enabled
	}
	return opts
}

func newCommandLogger(deps commandDeps, cfg config.Config) (*slog.Logger, io.Closer, error) {
	opts := logpkg.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		File:      cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	}
	if deps.globals != nil && deps.globals.Verbose {
		opts.File = ""
		opts.Output = deps.errOut
	}
	return logpkg.New(opts)
}

// withRuntime opens the initialized data directory, restores the session and
// runs fn. Counters are printed afterwards when metrics are enabled.
func withRuntime(cmdCtx context.Context, deps commandDeps, fn func(context.Context, *runtimeEnv) error) error {
	if cmdCtx == nil {
		cmdCtx = context.Background()
	}
	ctx := cmdCtx
	if deps.globals != nil && deps.globals.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(cmdCtx, deps.globals.Timeout)
		defer cancel()
	}

	cfg, err := loadCommandConfig(deps)
	if err != nil {
		return mapCommandError(err)
	}
	if _, err := os.Stat(cfg.DatabasePath()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return usageErrorf("data directory %s is not initialized (run `tinkuji init`)", cfg.Storage.DataDir)
		}
		return mapCommandError(err)
	}

	logger, closer, err := newCommandLogger(deps, cfg)
	if err != nil {
		return mapCommandError(err)
	}
	defer func() { _ = closer.Close() }()

	recorder := metrics.NewRecorder()
	store, err := storage.OpenAndInit(ctx, cfg.DatabasePath(), storage.WithObserver(recorder))
	if err != nil {
		return mapCommandError(err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}()

	files, err := filestore.New(cfg.Storage.DataDir,
		filestore.WithMaxDocumentBytes(cfg.MaxDocumentBytes()),
		filestore.WithLogger(logger),
		filestore.WithObserver(recorder),
	)
	if err != nil {
		return mapCommandError(err)
	}

	hasher, err := crypto.NewPasswordHasher(cfg.Argon2Params())
	if err != nil {
		return mapCommandError(err)
	}
	manager, err := session.NewManager(session.Deps{
		Users:     store.Users,
		Phones:    store.Phones,
		Bookings:  store.Bookings,
		Documents: store.Documents,
		Files:     files,
		Marker:    session.NewFileMarker(filepath.Join(cfg.Storage.DataDir, sessionMarkerName)),
		Hasher:    hasher,
		Logger:    logger,
		Observer:  recorder,
	})
	if err != nil {
		return mapCommandError(err)
	}
	if _, err := manager.Restore(ctx); err != nil {
		return mapCommandError(err)
	}

	env := &runtimeEnv{
		cfg:       cfg,
		logger:    logger,
		recorder:  recorder,
		store:     store,
		files:     files,
		session:   manager,
		bookings:  app.NewBookingService(store.Bookings),
		documents: app.NewDocumentService(store.Documents, files, logger),
		sweeper: app.NewSweeper(store.Users, store.Documents, files, cfg.Files.OrphanGracePeriod, logger).
			WithObserver(recorder),
	}

	runErr := mapCommandError(fn(ctx, env))
	if cfg.Metrics.Enabled {
		if err := recorder.WriteText(deps.errOut); err != nil && runErr == nil {
			runErr = mapCommandError(err)
		}
	}
	return runErr
}

func printJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

// readPassword reads one line from stdin when fromStdin is set, otherwise it
// prompts on the terminal. The caller must Destroy the returned buffer.
func readPassword(in io.Reader, fromStdin bool, title string) (*memguard.LockedBuffer, error) {
	var raw []byte
	if fromStdin {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read password from stdin: %w", err)
		}
		raw = []byte(strings.TrimRight(line, "\r\n"))
	} else {
		var value string
		input := huh.NewInput().
			Title(title).
			EchoMode(huh.EchoModePassword).
			Value(&value)
		if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
			return nil, fmt.Errorf("prompt password: %w", err)
		}
		raw = []byte(value)
	}

	if len(raw) == 0 {
		return nil, usageErrorf("password must not be empty")
	}
	// NewBufferFromBytes wipes raw.
	return memguard.NewBufferFromBytes(raw), nil
}

func stringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
