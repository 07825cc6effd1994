package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jsphweid/chordscribe/analysis"
	"github.com/jsphweid/chordscribe/catalog"
	"github.com/jsphweid/chordscribe/chord"
	"github.com/jsphweid/chordscribe/observe"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var servePort string

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the HTTP API",
	Long:  `Runs the HTTP API until SIGINT or SIGTERM, then drains in-flight requests.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if servePort != "" {
			cfg.Server.Port = servePort
		}
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	provider, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "chordscribe"})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown failed", slog.Any("error", err))
		}
	}()
	metrics := observe.DefaultMetrics()

	bank, err := loadBank(cfg)
	if err != nil {
		return err
	}
	store := catalog.NewStore(bank)

	decoder, extractor := newPipeline(cfg)
	if err := decoder.Check(); err != nil {
		slog.Warn("audio decoding will fail until ffmpeg is installed", slog.Any("error", err))
	}
	analyzer := analysis.New(decoder, extractor,
		analysis.WithBanks(store),
		analysis.WithThreshold(cfg.Analysis.Threshold),
		analysis.WithMetrics(metrics),
	)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Server.Port),
		Handler:           NewServer(analyzer, cfg.Server.UploadDir, cfg.Server.MaxUploadBytes()).Router(metrics, provider.Handler(), cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("listening", slog.String("addr", srv.Addr), slog.Int("templates", bank.Len()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.Analysis.CatalogPath != "" {
		w := catalog.NewWatcher(cfg.Analysis.CatalogPath, store,
			catalog.WithReloadHook(func(b *chord.Bank, err error) {
				metrics.RecordCatalogReload(ctx, err)
			}),
		)
		g.Go(func() error { return w.Run(ctx) })
	}
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		slog.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
