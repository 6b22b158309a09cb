package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ftl/map-responder/com"
	"github.com/ftl/map-responder/config"
	"github.com/ftl/map-responder/dialogue"
	"github.com/ftl/map-responder/responder"
	"github.com/ftl/map-responder/serial"
	"github.com/ftl/map-responder/trace"
)

const dialTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "mtr.toml", "path of the configuration file")
	flag.Parse()

	logger := newLogger()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mtr: %v\n", err)
		os.Exit(1)
	}
	level, _ := cfg.LogLevel()
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, cfg, logger); err != nil {
		fmt.Fprintf(os.Stderr, "mtr: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Str("app", "mtr").Logger()
}

func run(ctx context.Context, configPath string, cfg config.Config, logger zerolog.Logger) error {
	machine, err := dialogue.NewMachine(cfg.MachineConfig(), nil)
	if err != nil {
		return err
	}
	machine.WithLogger(logger)
	machine.Table().Reset()

	tracer := trace.New(os.Stdout, cfg.Trace)
	link, closer, err := openLink(ctx, cfg.Link, tracer, logger)
	if err != nil {
		return err
	}
	defer closer.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := responder.NewMetrics(registry, machine.Table())
	if cfg.Metrics.Address != "" {
		server := serveMetrics(cfg.Metrics.Address, registry, logger)
		defer server.Close()
	}

	go reloadOnHangup(ctx, configPath, machine, tracer, logger)

	logger.Info().
		Str("local_module", fmt.Sprintf("%02x", byte(cfg.LocalModule))).
		Str("peer_module", fmt.Sprintf("%02x", byte(cfg.PeerModule))).
		Str("termination_mode", cfg.TerminationMode.String()).
		Bool("trace", cfg.Trace).
		Int("dialogues", machine.Table().Capacity()).
		Msg("MAP test responder")

	err = responder.New(machine, link).
		WithLogger(logger).
		WithMetrics(metrics).
		WithWorkers(cfg.Workers).
		Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func openLink(ctx context.Context, cfg config.Link, tracer *trace.Tracer, logger zerolog.Logger) (*com.Link, io.Closer, error) {
	switch cfg.Kind {
	case config.TCPLink:
		dialer := net.Dialer{Timeout: dialTimeout}
		conn, err := dialer.DialContext(ctx, "tcp", cfg.Address)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot connect to the MAP module: %w", err)
		}
		logger.Info().Str("address", cfg.Address).Msg("connected to the MAP module")
		return com.NewWithTrace(conn, tracer), conn, nil
	case config.SerialLink:
		portName := cfg.Port
		if portName == config.AutoPort {
			var err error
			portName, err = serial.FindBoardPortName(serial.DefaultBoardMatch)
			if err != nil {
				return nil, nil, err
			}
		}
		link, closer, err := serial.OpenWithTrace(portName, cfg.BaudRate, tracer)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open %s: %w", portName, err)
		}
		logger.Info().Str("port", portName).Uint("baud_rate", cfg.BaudRate).Msg("opened serial port")
		return link, closer, nil
	default:
		return nil, nil, fmt.Errorf("unknown link kind %q", cfg.Kind)
	}
}

func serveMetrics(address string, registry *prometheus.Registry, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              address,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("address", address).Msg("metrics endpoint failed")
		}
	}()
	return server
}

// reloadOnHangup applies the termination mode and the trace setting of the configuration file
// whenever the process receives SIGHUP.
func reloadOnHangup(ctx context.Context, configPath string, machine *dialogue.Machine, tracer *trace.Tracer, logger zerolog.Logger) {
	hangup := make(chan os.Signal, 1)
	signal.Notify(hangup, syscall.SIGHUP)
	defer signal.Stop(hangup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hangup:
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			logger.Error().Err(err).Msg("cannot reload configuration")
			continue
		}
		machine.SetTerminationMode(cfg.TerminationMode)
		machine.SetTrace(cfg.Trace)
		tracer.SetEnabled(cfg.Trace)
		logger.Info().Str("termination_mode", cfg.TerminationMode.String()).Bool("trace", cfg.Trace).Msg("configuration reloaded")
	}
}
