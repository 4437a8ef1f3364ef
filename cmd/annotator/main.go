package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sceneannotate/annotator/internal/api"
	"github.com/sceneannotate/annotator/internal/config"
	"github.com/sceneannotate/annotator/internal/influx"
	"github.com/sceneannotate/annotator/internal/logging"
	intOtel "github.com/sceneannotate/annotator/internal/otel"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// build info - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "annotator"
)

// ConfigDirEnv names the environment variable holding the config directory
const ConfigDirEnv = "ANNOTATOR_CONFIG_DIR"

var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	LogFile    *os.File
	MetricFile *os.File

	SessionStartTime time.Time = time.Now()

	// current command and scene, attached to every log record
	currentCommand atomic.Value
	currentScene   atomic.Value
)

const usage = `usage: annotator <command> [args]

commands:
  save <scene.json>                   store the scene's annotations as a snapshot
  load <scene.json> <snapshotID>      replace the scene's annotations with a snapshot
  list                                list stored snapshots
  geojson <snapshotID> [out.geojson]  export a snapshot as GeoJSON
  clear <scene.json>                  remove every annotation from the scene
  version                             print the version
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return 2
	}

	command := strings.ToLower(args[0])
	switch command {
	case "version":
		fmt.Fprintf(stdout, "%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
		return 0
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	}

	currentCommand.Store(command)
	setup()
	defer shutdown()

	a, err := newApp(stdout)
	if err != nil {
		Logger.Error("Failed to start", "error", err)
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer a.Close()

	if err := a.dispatch(command, args[1:]); err != nil {
		Logger.Error("Command failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			return 2
		}
		return 1
	}
	return 0
}

func configDir() string {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir
	}
	return "."
}

// setup loads config and builds the logging and telemetry stack
func setup() {
	var err error

	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(os.Stderr, "info", nil)
	Logger = SlogManager.Logger()

	err = config.Load(configDir())
	if err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Debug("Loaded config", "path", viper.ConfigFileUsed())
	}

	logsDir := viper.GetString("logsDir")
	LogFile, err = logging.OpenLogFile(logsDir, AppName, SessionStartTime)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "dir", logsDir)
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		MetricFile, err = os.Create(logging.LogFilePath(logsDir, AppName+".metrics", SessionStartTime))
		if err != nil {
			Logger.Error("Failed to create metric file", "error", err)
			MetricFile = nil
		}
		cfg := intOtel.Config{
			Enabled:        true,
			ServiceName:    otelCfg.ServiceName,
			BatchTimeout:   otelCfg.BatchTimeout,
			MetricInterval: otelCfg.MetricInterval,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
		}
		if LogFile != nil {
			cfg.LogWriter = LogFile
		}
		if MetricFile != nil {
			cfg.MetricWriter = MetricFile
		}
		OTelProvider, err = intOtel.New(cfg)
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
			OTelProvider = nil
		}
	}

	var sinks []io.Writer
	if viper.GetBool("graylog.enabled") {
		gw, err := logging.NewGraylogWriter(viper.GetString("graylog.address"))
		if err != nil {
			Logger.Error("Failed to connect to Graylog", "error", err)
		} else {
			sinks = append(sinks, gw)
		}
	}

	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}

	SlogManager.SetContextProvider(func() []slog.Attr {
		attrs := []slog.Attr{slog.String("command", loadString(&currentCommand))}
		if s := loadString(&currentScene); s != "" {
			attrs = append(attrs, slog.String("scene", s))
		}
		return attrs
	})

	var out io.Writer = os.Stderr
	if LogFile != nil {
		out = LogFile
	}
	SlogManager.Setup(out, viper.GetString("logLevel"), otelLogProvider, sinks...)
	Logger = SlogManager.Logger()
	if LogFile != nil {
		Logger.Info("Logging to file", "path", LogFile.Name())
	}
}

func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if SlogManager != nil {
		_ = SlogManager.Flush(ctx)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "otel shutdown: %v\n", err)
		}
	}
	if MetricFile != nil {
		_ = MetricFile.Close()
	}
	if LogFile != nil {
		_ = LogFile.Close()
	}
}

func loadString(v *atomic.Value) string {
	s, _ := v.Load().(string)
	return s
}

// storageLogger returns the zerolog logger used by the database and influx layers
func storageLogger(component string) zerolog.Logger {
	var w io.Writer = os.Stderr
	if LogFile != nil {
		w = LogFile
	}
	return logging.NewZerolog(viper.GetString("logLevel"), component, w)
}

// newApp wires the configured backend, uploader and statistics writer
func newApp(stdout io.Writer) (*app, error) {
	storageCfg := config.GetStorageConfig()
	backend, err := createStorageBackend(storageCfg, Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := openBackend(backend); err != nil {
		return nil, err
	}

	a := &app{
		logger:      Logger,
		backend:     backend,
		storageType: storageTypeName(storageCfg.Type),
		shapes:      shapeConfig(config.GetShapeConfig()),
		sourceCRS:   viper.GetString("geo.sourceCRS"),
		generator:   AppName + " " + CurrentVersion,
		out:         stdout,
		setScene:    func(s string) { currentScene.Store(s) },
	}

	apiCfg := config.GetAPIConfig()
	if apiCfg.Enabled() {
		client := api.New(apiCfg.ServerURL, apiCfg.APIKey)
		if err := client.Healthcheck(); err != nil {
			Logger.Info("Web viewer is offline", "error", err)
		} else {
			Logger.Info("Web viewer is online")
		}
		a.uploader = client
	}

	influxCfg := config.GetInfluxConfig()
	backupPath := filepath.Join(viper.GetString("logsDir"), "influx_backup.log.gzip")
	stats := influx.NewManager(influxCfg, backupPath, storageLogger("influx"))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	switch err := stats.Connect(ctx); {
	case errors.Is(err, influx.ErrDisabled):
	case err != nil:
		Logger.Warn("Failed to set up InfluxDB statistics", "error", err)
		_ = stats.Close()
	default:
		a.stats = stats
	}

	return a, nil
}
