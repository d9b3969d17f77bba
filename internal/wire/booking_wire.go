package wire

import (
	"marketplace-booking/internal/adaptor"
	"marketplace-booking/pkg/middleware"
	"marketplace-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(
	r chi.Router,
	bookingHandler *adaptor.BookingHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	r.Route("/bookings", func(r chi.Router) {
		r.Use(middleware.Auth(config.JWT.Secret, config.JWT.Issuer, log))

		r.Post("/", bookingHandler.CreateBooking)
		r.Get("/{id}", bookingHandler.GetBooking)
		r.Put("/{id}/status", bookingHandler.UpdateStatus)
		r.Post("/{id}/charges", bookingHandler.AddCharge)
		r.Delete("/{id}", bookingHandler.CancelBooking)
	})
}
