package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
	"github.com/vrsandeep/qa-harvest/internal/assets"
	"github.com/vrsandeep/qa-harvest/internal/config"
	"github.com/vrsandeep/qa-harvest/internal/db"
	"github.com/vrsandeep/qa-harvest/internal/events"
	"github.com/vrsandeep/qa-harvest/internal/extract"
	"github.com/vrsandeep/qa-harvest/internal/jobs"
	"github.com/vrsandeep/qa-harvest/internal/patterns"
	"github.com/vrsandeep/qa-harvest/internal/pipeline"
	"github.com/vrsandeep/qa-harvest/internal/report"
	"github.com/vrsandeep/qa-harvest/internal/store"
)

// App holds the core components of the application that are shared
// between the server and the CLI.
type App struct {
	Config   *config.Config
	DB       *sql.DB
	Patterns *store.PatternStore
	Bus      *events.Bus
	Jobs     *jobs.Manager

	janitor *gocron.Scheduler
}

// Open sets up and returns a new App instance. It initializes the database
// connection, runs migrations and checks the OCR engine.
func Open(cfg *config.Config) (*App, error) {
	opts := JobOptions(cfg)
	if err := opts.Report.Columns.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	database, err := db.InitDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.RunMigrations(database, assets.MigrationsFS); err != nil {
		// We can't proceed without a valid database schema.
		database.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	tess := extract.NewTesseract(extract.TesseractConfig{
		Binary:      cfg.OCR.Tesseract,
		Lang:        cfg.OCR.Lang,
		PSM:         cfg.OCR.PSM,
		TessdataDir: cfg.OCR.TessdataDir,
	}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if version, err := tess.Check(ctx); err != nil {
		log.Warn().Err(err).Msg("Tesseract is not available, scanned documents will be marked Failed")
	} else {
		log.Info().Str("version", version).Msg("Tesseract found")
	}

	app := Assemble(cfg, database, extract.MuPDFOpener{}, tess)
	app.janitor = jobs.StartJanitor(app.Jobs, cfg.Results.SweepMinutes)

	log.Info().Msg("Core application setup complete.")
	return app, nil
}

// Assemble wires the pipeline on top of an open, migrated database.
func Assemble(cfg *config.Config, database *sql.DB, opener extract.Opener, ocr extract.Recognizer) *App {
	ex := extract.New(extract.Config{
		MinTextChars: cfg.Extract.MinTextChars,
		DPI:          cfg.OCR.DPI,
		MaxDimension: cfg.OCR.MaxDimension,
	}, opener, ocr)

	ps := store.NewPatternStore(database)
	bus := events.NewBus()
	mgr := jobs.NewManager(bus, ps, pipeline.NewProcessor(ex), JobOptions(cfg))

	return &App{
		Config:   cfg,
		DB:       database,
		Patterns: ps,
		Bus:      bus,
		Jobs:     mgr,
	}
}

// JobOptions maps the configuration onto the job manager's options.
func JobOptions(cfg *config.Config) jobs.Options {
	c := cfg.Report.Columns
	return jobs.Options{
		Report: report.Options{
			Sheet:          cfg.Report.Sheet,
			HighlightColor: cfg.Report.Highlight,
			Columns: report.Columns{
				FileName: c.FileName,
				Model:    c.Model,
				QANumber: c.QANumber,
				Author:   c.Author,
				Status:   c.Status,
				Reason:   c.Reason,
			},
		},
		Matching: patterns.Options{
			Standardization: cfg.StandardizationMap(),
			UnwantedAuthors: cfg.Matching.UnwantedAuthors,
		},
		ResultTTL: time.Duration(cfg.Results.TTLMinutes) * time.Minute,
	}
}

// Close gracefully closes the application's resources, like the DB connection.
func (a *App) Close() {
	if a.janitor != nil {
		a.janitor.Stop()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
