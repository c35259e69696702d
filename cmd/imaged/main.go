package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"imaged/internal/common/fsutil"
	"imaged/internal/config"
	"imaged/internal/engine"
	"imaged/internal/gpu"
	"imaged/internal/httpapi"
	"imaged/internal/policy"
	"imaged/internal/registry"
	"imaged/internal/render"
)

func main() {
	// Flags with environment variable defaults
	defaultVariant := "zimage"
	if v := os.Getenv("IMAGED_VARIANT"); v != "" {
		defaultVariant = v
	}
	addr := flag.String("addr", defaultListenAddr(), "HTTP listen address, e.g. :8080")
	variant := flag.String("variant", defaultVariant, "Model variant to serve: "+strings.Join(policy.Variants(), "|"))
	configPath := flag.String("config", "", "Optional config file (.yaml/.json/.toml); flags override it")
	workerBin := flag.String("worker-bin", "", "Accelerated inference worker binary (empty = cpu only)")
	captionModel := flag.String("caption-model", "", "GGUF caption model for the cpu understanding path")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	generateTimeout := flag.Int("generate-timeout", 0, "Per-request generation timeout in seconds (0 = none)")
	maxBodyMB := flag.Int("max-body-mb", 0, "Maximum request body size in MiB (0 = default)")
	corsOrigins := flag.String("cors-origins", "", "Comma-separated allowed CORS origins (empty disables CORS)")
	flag.Parse()

	cfg := config.Config{}
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
	}
	applyFlagOverrides(&cfg, *addr, *variant, *workerBin, *captionModel, *logLevel, *generateTimeout, *maxBodyMB)
	if origins := splitCSV(*corsOrigins); len(origins) > 0 {
		cfg.CORSEnabled = true
		cfg.CORSAllowedOrigins = origins
	}

	logger := newLogger(cfg.LogLevel)

	profile, ok := policy.Lookup(cfg.Variant)
	if !ok {
		logger.Fatal().Str("variant", cfg.Variant).Strs("known", policy.Variants()).Msg("unknown variant")
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())
	defer baseCancel()

	accel := gpu.Probe(baseCtx)
	logger.Info().Str("accelerator", accel.String()).Msg("probe complete")

	candidates := policy.SelectCandidates(accel, profile)

	workerPath, err := fsutil.ExpandHome(cfg.WorkerBin)
	if err != nil {
		logger.Fatal().Err(err).Msg("resolve worker binary path")
	}
	captionPath, err := registry.Resolve(cfg.CaptionModel)
	if err != nil {
		logger.Fatal().Err(err).Msg("resolve caption model path")
	}

	builder := render.NewBuilder(render.Options{
		Profile:         profile,
		WorkerBin:       workerPath,
		WorkerHost:      cfg.WorkerHost,
		WorkerPortStart: cfg.WorkerPortStart,
		WorkerPortEnd:   cfg.WorkerPortEnd,
		WorkerExtraArgs: cfg.WorkerExtraArgs,

		CaptionModelPath: captionPath,
		CaptionCtxSize:   cfg.CaptionCtxSize,
		CaptionThreads:   cfg.CaptionThreads,

		Publisher: engine.LogPublisher{Logger: logger},
	})

	eng := engine.New(engine.Config{
		Profile:     profile,
		Accelerator: accel,
		Builder:     builder,
		Publisher:   engine.LogPublisher{Logger: logger},
	})
	defer eng.Close()

	// The loader runs to completion before traffic is accepted. A failed load
	// keeps the process alive: health and status stay reachable and generation
	// answers 503.
	if err := eng.Load(baseCtx, candidates); err != nil {
		logger.Error().Err(err).Msg("model load failed; serving in degraded mode")
	} else {
		active := eng.ActiveCandidate()
		logger.Info().
			Str("backend", string(active.Backend)).
			Str("quantization", string(active.Precision)).
			Bool("offload", active.Offload).
			Msg("model ready")
	}

	httpapi.SetLogger(logger)
	httpapi.SetBaseContext(baseCtx)
	if cfg.MaxBodyMB > 0 {
		httpapi.SetMaxBodyBytes(int64(cfg.MaxBodyMB) << 20)
	}
	httpapi.SetGenerateTimeoutSeconds(int64(cfg.GenerateTimeoutSeconds))
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins, cfg.CORSAllowedMethods, cfg.CORSAllowedHeaders)

	mux := httpapi.NewMux(eng)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("variant", profile.ID).Msg("imaged listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	baseCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
	if err := eng.Close(); err != nil {
		logger.Warn().Err(err).Msg("pipeline release error")
	}
}

// defaultListenAddr resolves the default listen address: IMAGED_ADDR wins,
// then PORT selects the port on all interfaces, then :8080.
func defaultListenAddr() string {
	if v := os.Getenv("IMAGED_ADDR"); v != "" {
		return v
	}
	if v := os.Getenv("PORT"); v != "" {
		return ":" + v
	}
	return ":8080"
}

// applyFlagOverrides lets explicit flags win over the config file while the
// file still supplies everything the flags left at defaults.
func applyFlagOverrides(cfg *config.Config, addr, variant, workerBin, captionModel, logLevel string, generateTimeout, maxBodyMB int) {
	if cfg.Addr == "" || addr != ":8080" {
		cfg.Addr = addr
	}
	if cfg.Variant == "" || variant != "zimage" {
		cfg.Variant = variant
	}
	if workerBin != "" {
		cfg.WorkerBin = workerBin
	}
	if captionModel != "" {
		cfg.CaptionModel = captionModel
	}
	if cfg.LogLevel == "" || logLevel != "info" {
		cfg.LogLevel = logLevel
	}
	if generateTimeout > 0 {
		cfg.GenerateTimeoutSeconds = generateTimeout
	}
	if maxBodyMB > 0 {
		cfg.MaxBodyMB = maxBodyMB
	}
}

// splitCSV splits a comma-separated flag value, trimming whitespace and
// dropping empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
