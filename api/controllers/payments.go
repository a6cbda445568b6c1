package controllers

import (
	"net/http"
	"strings"

	"github.com/mercavia/tienda-backend/api/responses"
	"github.com/mercavia/tienda-backend/api/validators"
	paymentsvc "github.com/mercavia/tienda-backend/internal/payments"
	pkgerrors "github.com/mercavia/tienda-backend/pkg/errors"
	"github.com/mercavia/tienda-backend/pkg/logger"
)

// CreateCheckoutSession opens a hosted Stripe checkout for a pending order.
func CreateCheckoutSession(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.CreateCheckoutSession(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

type confirmPaymentRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

// ConfirmPayment settles an order after the success redirect. The
// session is re-read from Stripe rather than trusted from the caller.
func ConfirmPayment(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
		if sessionID == "" {
			var payload confirmPaymentRequest
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			sessionID = strings.TrimSpace(payload.SessionID)
		}

		order, err := svc.ConfirmPayment(r.Context(), userID, sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
