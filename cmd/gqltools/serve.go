package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	gqltools "github.com/hanpama/gqltools"
	config "github.com/hanpama/gqltools/internal/config"
	eventbus "github.com/hanpama/gqltools/internal/eventbus"
	events "github.com/hanpama/gqltools/internal/events"
	metrics "github.com/hanpama/gqltools/internal/metrics"
	mock "github.com/hanpama/gqltools/internal/mock"
	server "github.com/hanpama/gqltools/internal/server"
	telemetry "github.com/hanpama/gqltools/internal/telemetry"
)

func newServeCmd(cfg *config.Config, logger *logrus.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the schema over HTTP with mock resolvers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
	addSchemaFlag(cmd, cfg)
	f := cmd.Flags()
	f.StringVar(&cfg.Mocks, "mocks", cfg.Mocks, "YAML file of fixed mock values keyed by Type.field")
	f.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	f.BoolVar(&cfg.Introspection, "introspection", cfg.Introspection, "enable GraphQL introspection")
	f.BoolVar(&cfg.Pretty, "pretty", cfg.Pretty, "pretty-print JSON responses")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-request timeout")
	f.IntVar(&cfg.MaxConcurrency, "max-concurrency", cfg.MaxConcurrency, "resolvers run at once per batch (0: unbounded)")
	f.StringSliceVar(&cfg.CORSOrigins, "cors-origin", cfg.CORSOrigins, "allowed CORS origin. Repeatable")
	f.StringSliceVar(&cfg.MetadataHeaders, "metadata-header", cfg.MetadataHeaders, "forward HTTP header to outgoing gRPC metadata. Repeatable")
	f.StringVar(&cfg.OTLPEndpoint, "otel-endpoint", cfg.OTLPEndpoint, "OTLP collector endpoint")
	f.StringVar(&cfg.ServiceName, "otel-service", cfg.ServiceName, "OpenTelemetry service name")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	bus := eventbus.New()
	eventbus.Use(bus)
	defer eventbus.Use(nil)

	m := metrics.New()
	defer m.Subscribe(bus)()

	shutdown, err := telemetry.Setup(ctx, bus, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	s, err := buildMockSchema(ctx, cfg, logger)
	if err != nil {
		return err
	}
	var sopts []server.Option
	if cfg.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	sopts = append(sopts,
		server.WithTimeout(cfg.Timeout),
		server.WithMaxBodyBytes(cfg.MaxBodyBytes),
		server.WithQueryCache(cfg.QueryCacheSize),
		server.WithLogger(logger),
		server.WithCORS(cfg.CORSOrigins...),
		server.WithMetadataHeaders(cfg.MetadataHeaders...),
	)
	h, err := server.New(s, sopts...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(h, m),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", cfg.Addr).Info("GraphQL server listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// buildMockSchema builds the schema with mock resolvers and reports the
// result as a SchemaBuilt event.
func buildMockSchema(ctx context.Context, cfg *config.Config, logger logrus.FieldLogger) (*gqltools.ExecutableSchema, error) {
	start := time.Now()
	s, err := func() (*gqltools.ExecutableSchema, error) {
		sources, err := loadSources(cfg.Schemas)
		if err != nil {
			return nil, err
		}
		var opts mock.Options
		if cfg.Mocks != "" {
			f, err := os.Open(cfg.Mocks)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			if opts.Fixed, err = mock.LoadFixed(f); err != nil {
				return nil, err
			}
		}
		return mock.MakeExecutableSchema(gqltools.Config{
			Sources:        sources,
			Logger:         logger,
			Introspection:  cfg.Introspection,
			MaxConcurrency: cfg.MaxConcurrency,
		}, opts)
	}()

	e := events.SchemaBuilt{Duration: time.Since(start), Err: err}
	if err == nil {
		e.Types = countTypes(s)
	}
	eventbus.Publish(ctx, e)
	return s, err
}

func newRouter(graphql http.Handler, m *metrics.Metrics) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/graphql", graphql)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	return r
}
