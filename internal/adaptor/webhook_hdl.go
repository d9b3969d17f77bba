package adaptor

import (
	"io"
	"net/http"

	"marketplace-booking/internal/usecase"
	"marketplace-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	maxWebhookBody       = 1 << 20
	headerWebhookSig     = "X-Razorpay-Signature"
	headerWebhookEventID = "X-Razorpay-Event-Id"
)

type WebhookHandler struct {
	service usecase.WebhookService
	log     *zap.Logger
}

func NewWebhookHandler(service usecase.WebhookService, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log.With(zap.String("handler", "webhook")),
	}
}

// HandleWebhook handles POST /payments/webhook/{provider} (public, signed)
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	// the signature covers the exact bytes, so read before any decoding
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		utils.ResponseBadRequest(w, "Unable to read request body", nil)
		return
	}

	result, err := h.service.HandleWebhook(
		r.Context(),
		chi.URLParam(r, "provider"),
		body,
		r.Header.Get(headerWebhookSig),
		r.Header.Get(headerWebhookEventID),
	)
	if err != nil {
		handleServiceError(w, r, h.log, err, "process webhook")
		return
	}

	utils.ResponseSuccess(w, "accepted", result)
}
