package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/combine"
	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/config"
	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/discover"
	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/header"
	"github.com/AMF-FLX/AMF-BASE-QAQC-sub001/internal/report"
)

var (
	configPath string
	logLevel   string
	dataDir    string
	outputDir  string
	dbPath     string

	cfg    config.Config
	logger *zap.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML or HCL config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data", "d", "", "Directory holding the manifest and uploads")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "out", "o", "", "Directory for combined files")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Outcome database (SQLite)")
}

var rootCmd = &cobra.Command{
	Use:   "combiner",
	Short: "Combine overlapping site uploads into one contiguous file per resolution",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		// flags win over the config file
		override := func(dst *string, flag, v string) {
			if cmd.Flags().Changed(flag) {
				*dst = v
			}
		}
		override(&cfg.LogLevel, "log-level", logLevel)
		override(&cfg.DataDir, "data", dataDir)
		override(&cfg.OutputDir, "out", outputDir)
		override(&cfg.DBPath, "db", dbPath)

		lvl, err := cfg.Level()
		if err != nil {
			return err
		}
		logger, err = newLogger(lvl)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

func newLogger(lvl zapcore.Level) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.DisableStacktrace = true
	return zc.Build()
}

// newRunner wires the manifest, the filesystem and sink into a Runner.
// Paths are made absolute so one filesystem rooted at / serves uploads
// and output alike.
func newRunner(sink report.Sink) (*combine.Runner, error) {
	manifest, err := filepath.Abs(cfg.ManifestPath())
	if err != nil {
		return nil, err
	}
	out, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	validator, err := header.NewPattern(cfg.ColumnPattern)
	if err != nil {
		return nil, err
	}

	fs := osfs.New("/")
	src, err := discover.NewManifest(fs, manifest, cfg.ManifestSelector)
	if err != nil {
		return nil, err
	}
	return combine.New(fs, src, sink, combine.Options{
		OutputDir:       out,
		MissingValue:    cfg.MissingValue,
		TimestampStart:  cfg.TimestampStart,
		TimestampEnd:    cfg.TimestampEnd,
		Validator:       validator,
		HeaderCacheSize: cfg.HeaderCacheSize,
		Workers:         cfg.Workers,
	}, logger)
}

// openSink returns the outcome sink for a run: the log, plus the SQLite
// store unless db_path is empty. The returned close func is never nil.
func openSink() (report.Sink, func() error, error) {
	logSink := report.LogSink{Log: logger.Named("outcome")}
	if cfg.DBPath == "" {
		return logSink, func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := report.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return report.Multi{db, logSink}, db.Close, nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
