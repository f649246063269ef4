package gatewayd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/n9te9/fedgate/internal/compose"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const gatewaydVersion = "v0.1.0"

// Run loads configPath, composes the configured subgraphs, and serves the
// planning endpoint until interrupted. It follows server/gateway.go's
// Run(): JSON logging via slog, optional otel tracing, graceful shutdown.
func Run(configPath string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sdls, err := ReadSubgraphSDLs(cfg.Subgraphs)
	if err != nil {
		return fmt.Errorf("failed to read subgraph schemas: %w", err)
	}

	var subgraphs []compose.Subgraph
	for name, sdl := range sdls {
		subgraphs = append(subgraphs, compose.Subgraph{Name: name, SDL: sdl})
	}

	schema, warnings, err := compose.Compose(subgraphs)
	if err != nil {
		return fmt.Errorf("composition failed: %w", err)
	}
	for _, w := range warnings {
		logger.Warn("composition warning", "message", w.Message, "type", w.TypeName, "field", w.Field, "service", w.Service)
	}

	handler := http.Handler(NewHandler(schema))
	if cfg.Tracing.Enable {
		handler = otelhttp.NewHandler(handler, cfg.ServiceName)
	}
	handler = WithRequestID(handler)

	timeoutDuration, err := time.ParseDuration(cfg.TimeoutDuration)
	if err != nil {
		return fmt.Errorf("failed to parse timeout duration: %w", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill, syscall.SIGTERM)
	defer cancel()

	var shutdownTracer func(context.Context) error
	if cfg.Tracing.Enable {
		shutdownTracer, err = InitTracer(ctx, cfg.ServiceName, gatewaydVersion)
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}
	}

	go func() {
		logger.Info("starting gatewayd", "port", cfg.Port, "subgraphs", len(cfg.Subgraphs))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("gatewayd server failed: %v", err)
		}
	}()

	<-ctx.Done()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), timeoutDuration)
	defer cancel()

	logger.Info("shutting down gatewayd")
	if err := srv.Shutdown(timeoutCtx); err != nil {
		return fmt.Errorf("failed to shutdown gatewayd server: %w", err)
	}

	if shutdownTracer != nil {
		if err := shutdownTracer(timeoutCtx); err != nil {
			return fmt.Errorf("failed to shutdown tracer: %w", err)
		}
	}

	logger.Info("gatewayd stopped")
	return nil
}
