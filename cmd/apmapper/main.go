package main

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wardrive/apmapper/internal/aggregate"
	"github.com/wardrive/apmapper/internal/config"
	"github.com/wardrive/apmapper/internal/estimate"
	"github.com/wardrive/apmapper/internal/export"
	"github.com/wardrive/apmapper/internal/filter"
	"github.com/wardrive/apmapper/internal/models"
	"github.com/wardrive/apmapper/internal/oui"
	"github.com/wardrive/apmapper/internal/potfile"
	"github.com/wardrive/apmapper/internal/session"
)

func main() {
	var (
		dir        = flag.String("d", ".", "working directory holding .pcapng/.nmea/.22000 files")
		configPath = flag.String("config", "", "path to YAML config file")
		logLevel   = flag.String("log-level", "", "log level (trace, debug, info, warn, error)")
		kml        = flag.Bool("kml", false, "export a KML map")
		kmlOutput  = flag.String("kml-output", "", "path of the KML output file")
		csvFlag    = flag.Bool("csv", false, "export a CSV table")
		csvOutput  = flag.String("csv-output", "", "path of the CSV output file")
		interest   = flag.Bool("f", false, "apply the interest filter to exports")
		noPotfile  = flag.Bool("no-potfile", false, "disable password binding from cracked files")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("run_id", uuid.NewString()).Logger()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load configuration")
		}
		cfg = loaded
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *interest {
		cfg.Filter.Enabled = true
	}
	if *noPotfile {
		cfg.Potfile.Enabled = false
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal().Str("log_level", cfg.LogLevel).Msg("unknown log level")
	}
	logger = logger.Level(level)

	discovery, err := session.Discover(*dir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to scan working directory")
	}
	if len(discovery.Sessions) == 0 {
		logger.Fatal().Str("dir", *dir).Msg("no capture/track-log session pairs found")
	}
	logger.Info().Int("sessions", len(discovery.Sessions)).Msg("discovered sessions")

	runner := session.NewRunner(cfg.Workers, cfg.Sync.Tolerance.Std(),
		aggregate.Options{CollapseDuplicates: cfg.Aggregate.CollapseDuplicates}, logger)
	workingSet := runner.Run(discovery.Sessions)
	workingSet.Freeze()

	failed := 0
	for _, stats := range runner.Stats() {
		if stats.Failed {
			failed++
		}
	}
	logger.Info().
		Int("access_points", workingSet.Len()).
		Int("failed_sessions", failed).
		Msg("aggregated observations")
	if workingSet.Len() == 0 {
		logger.Fatal().Msg("no usable observations in any session")
	}

	records := workingSet.Records()

	estOpts := estimate.Options{
		Method:           estimate.Method(cfg.Estimator.Method),
		MinSpacingMeters: cfg.Estimator.MinSpacingMeters,
	}
	positioned := 0
	for _, rec := range records {
		rec.Estimated = estimate.Estimate(rec, estOpts)
		if rec.Estimated != nil {
			positioned++
		}
	}
	logger.Info().Int("positioned", positioned).Int("total", len(records)).Msg("estimated positions")

	logger.Info().Int("with_vendor", oui.Bind(records)).Msg("bound vendors")

	if cfg.Potfile.Enabled {
		store := potfile.NewStore(logger)
		for _, path := range discovery.ShowFiles {
			loadInto(store.LoadShowFile, path, logger)
		}
		for _, path := range discovery.HashFiles {
			loadInto(store.LoadHashFile, path, logger)
		}
		logger.Info().Int("with_password", store.Bind(records)).Msg("bound passwords")
	}

	exported := filter.Select(records, filter.Config{
		Enabled:         cfg.Filter.Enabled,
		MinObservations: cfg.Filter.MinObservations,
		RequirePassword: cfg.Filter.RequirePassword,
	})
	logger.Info().Int("exported", len(exported)).Msg("selected records for export")

	if *kml || *kmlOutput != "" {
		path := *kmlOutput
		if path == "" {
			path = "wifi_aps.kml"
		}
		if err := writeExport(path, exported, export.WriteKML); err != nil {
			logger.Fatal().Err(err).Str("path", path).Msg("KML export failed")
		}
		logger.Info().Str("path", path).Msg("wrote KML export")
	}
	if *csvFlag || *csvOutput != "" {
		path := *csvOutput
		if path == "" {
			path = "wifi_aps.csv"
		}
		if err := writeExport(path, exported, export.WriteCSV); err != nil {
			logger.Fatal().Err(err).Str("path", path).Msg("CSV export failed")
		}
		logger.Info().Str("path", path).Msg("wrote CSV export")
	}
}

func loadInto(load func(r io.Reader) int, path string, logger zerolog.Logger) {
	f, err := os.Open(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable file")
		return
	}
	defer f.Close()
	logger.Debug().Str("path", path).Int("entries", load(f)).Msg("loaded password data")
}

func writeExport(path string, records []*models.AccessPoint, write func(w io.Writer, records []*models.AccessPoint) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
