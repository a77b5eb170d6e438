package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"jobline/internal/config"
	"jobline/internal/db"
	"jobline/internal/engine"
	"jobline/internal/logging"
	"jobline/internal/magiclink"
	"jobline/internal/materials"
	"jobline/internal/migrate"
	"jobline/internal/report"
)

// Options select the workspace and secrets used to assemble an Engine.
type Options struct {
	Workspace string
	// LinkSecret signs magic links; empty disables them.
	LinkSecret string
	// Logger overrides the logger built from config.
	Logger *zap.Logger
}

// Runtime is an opened workspace: database, config, logger and engine.
type Runtime struct {
	DB     *sql.DB
	Config *config.Config
	Logger *zap.Logger
	Engine engine.Engine
}

func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	_ = r.Logger.Sync()
	if r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Open loads jobline.yml, opens and migrates the workspace database and wires
// the engine with its collaborators. Optional collaborators that fail to
// build are logged and left disabled.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	cfg, err := config.Load(opts.Workspace)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return nil, err
		}
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	e := engine.New(conn, cfg)
	e.Logger = logger.Named("engine")

	if strings.TrimSpace(opts.LinkSecret) != "" {
		links, err := magiclink.New(opts.LinkSecret, cfg.Service.LinkHost)
		if err != nil {
			conn.Close()
			return nil, err
		}
		e.Links = links
	} else {
		logger.Warn("magic links disabled: no link secret configured")
	}

	if cfg.Export.Endpoint != "" {
		sink, err := report.NewMinIOSink(cfg.Export)
		if err != nil {
			logger.Warn("export sink disabled", zap.Error(err))
		} else {
			e.Sink = sink
		}
	}

	suggester, err := materials.FromConfig(cfg.Materials, logger)
	if err != nil {
		logger.Warn("material suggestions disabled", zap.Error(err))
		suggester = materials.Disabled{}
	}
	e.Materials = suggester

	return &Runtime{DB: conn, Config: cfg, Logger: logger, Engine: e}, nil
}

// Init writes a default jobline.yml and creates the workspace database.
// An existing config is left untouched unless force is set.
func Init(ctx context.Context, workspace, linkHost string, force bool) (string, error) {
	if linkHost == "" {
		linkHost = "localhost:8080"
	}
	path := config.Path(workspace)
	if _, err := os.Stat(path); err == nil && !force {
		return path, fmt.Errorf("%s already exists", path)
	}
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		return path, err
	}
	if err := os.WriteFile(path, []byte(config.GenerateDefault(linkHost)), 0o644); err != nil {
		return path, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return path, err
	}
	defer conn.Close()
	if err := migrate.Migrate(ctx, conn); err != nil {
		return path, fmt.Errorf("migrate: %w", err)
	}
	return path, nil
}
