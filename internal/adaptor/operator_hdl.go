package adaptor

import (
	"net/http"

	"marketplace-booking/internal/usecase"
	"marketplace-booking/pkg/utils"

	"go.uber.org/zap"
)

type OperatorHandler struct {
	reconcile usecase.ReconcileService
	log       *zap.Logger
}

func NewOperatorHandler(reconcile usecase.ReconcileService, log *zap.Logger) *OperatorHandler {
	return &OperatorHandler{
		reconcile: reconcile,
		log:       log.With(zap.String("handler", "operator")),
	}
}

// Reconcile handles POST /operator/reconcile (operator key)
func (h *OperatorHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconcile.ReconcileOnce(r.Context())
	if err != nil {
		handleServiceError(w, r, h.log, err, "reconcile payments")
		return
	}

	utils.ResponseSuccess(w, "Reconciliation finished", result)
}
