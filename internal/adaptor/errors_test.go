package adaptor

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketplace-booking/internal/data/repository"
	"marketplace-booking/internal/gateway"
	"marketplace-booking/internal/lifecycle"
	"marketplace-booking/internal/usecase"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestHandleServiceErrorStatusCodes(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{usecase.ErrSignatureInvalid, http.StatusBadRequest},
		{fmt.Errorf("%w: bad id", usecase.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: pending -> completed", lifecycle.ErrInvalidTransition), http.StatusBadRequest},
		{usecase.ErrAlreadyRefunded, http.StatusBadRequest},
		{fmt.Errorf("%w: stranger", lifecycle.ErrForbidden), http.StatusForbidden},
		{usecase.ErrBookingNotFound, http.StatusNotFound},
		{usecase.ErrUnsupportedSource, http.StatusNotFound},
		{fmt.Errorf("save: %w", repository.ErrConcurrentUpdate), http.StatusConflict},
		{usecase.ErrPaymentConflict, http.StatusConflict},
		{gateway.ErrPaymentUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("create gateway order: %w", gateway.ErrCommunication), http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			handleServiceError(rec, req, zap.NewNop(), tt.err, "test")
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), `"status":false`)
		})
	}
}
