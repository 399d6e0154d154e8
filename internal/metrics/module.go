package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"

	"github.com/bennert/crypto-scanner/internal/config"
	"github.com/bennert/crypto-scanner/pkg/logger"
)

// Module serves /metrics, /livez and /readyz on the admin port.
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Invoke(
			func(lc fx.Lifecycle, cfg *config.Config) {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusOK)
					_, _ = w.Write([]byte("ok"))
				})
				mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusOK)
					_, _ = w.Write([]byte("ready"))
				})

				srv := &http.Server{
					Addr:    fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.AdminPort),
					Handler: mux,
				}
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						go func() {
							logger.Info("metrics: admin listening on %s", srv.Addr)
							if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
								logger.Error("metrics: admin server: %v", err)
							}
						}()
						return nil
					},
					OnStop: func(ctx context.Context) error {
						return srv.Shutdown(ctx)
					},
				})
			},
		),
	)
}
