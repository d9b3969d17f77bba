package wire

import (
	"net/http"

	"marketplace-booking/internal/adaptor"
	"marketplace-booking/internal/usecase"
	"marketplace-booking/pkg/middleware"
	"marketplace-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App holds the wired service graph and its router.
type App struct {
	Router  *chi.Mux
	Service *usecase.Service

	closers []func()
}

// Close releases the connections opened by Bootstrap in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Wiring builds services, handlers and routes on top of ready dependencies.
func Wiring(deps usecase.Deps, config *utils.Config, logger *zap.Logger) *App {
	service := usecase.NewService(deps, config, logger)
	handler := adaptor.NewHandler(service, logger)

	router := setupRouter(handler, deps, config, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

func setupRouter(
	handler *adaptor.Handler,
	deps usecase.Deps,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(deps.Metrics.Middleware)

	wireBooking(r, handler.Booking, config, logger)
	wirePayment(r, handler.Payment, handler.Webhook, config, logger)
	wireOperator(r, handler.Operator, config, logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.ResponseSuccess(w, "OK", map[string]any{
			"gateway": deps.Gateway.IsAvailable(),
		})
	})
	r.Handle("/metrics", deps.Metrics.Handler())

	return r
}
