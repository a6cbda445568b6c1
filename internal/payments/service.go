package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/mercavia/tienda-backend/internal/orders"
	"github.com/mercavia/tienda-backend/pkg/db"
	"github.com/mercavia/tienda-backend/pkg/db/models"
	"github.com/mercavia/tienda-backend/pkg/enums"
	pkgerrors "github.com/mercavia/tienda-backend/pkg/errors"
)

const paymentIntentIndex = "idx_orders_stripe_payment_intent_id"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CheckoutSessionDTO carries the redirect handle for a hosted checkout page.
type CheckoutSessionDTO struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// Options carries the storefront-facing Stripe settings.
type Options struct {
	SuccessURL string
	CancelURL  string
	Currency   string
}

// Service drives hosted checkout and settles payments back onto orders.
// Settlement arrives on two independent paths, the browser confirm call and
// the webhook, and both funnel through the same reconciliation.
type Service interface {
	CreateCheckoutSession(ctx context.Context, userID, orderID uuid.UUID) (*CheckoutSessionDTO, error)
	ConfirmPayment(ctx context.Context, userID uuid.UUID, sessionID string) (*orders.OrderDTO, error)
	HandleEvent(ctx context.Context, event *stripe.Event) error
}

type service struct {
	repo   orders.Repository
	tx     txRunner
	stripe StripeCheckoutClient
	opts   Options
}

// NewService builds a payments service with the required dependencies.
func NewService(repo orders.Repository, tx txRunner, client StripeCheckoutClient, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if client == nil {
		return nil, fmt.Errorf("stripe client required")
	}
	if opts.SuccessURL == "" || opts.CancelURL == "" {
		return nil, fmt.Errorf("checkout redirect urls required")
	}
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	return &service{repo: repo, tx: tx, stripe: client, opts: opts}, nil
}

func (s *service) CreateCheckoutSession(ctx context.Context, userID, orderID uuid.UUID) (*CheckoutSessionDTO, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order is already paid")
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(order.Items))
	for _, item := range order.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(s.opts.Currency),
				UnitAmount: stripe.Int64(item.UnitPrice.Shift(2).IntPart()),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.ProductName),
				},
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(userID.String()),
		LineItems:         lineItems,
		SuccessURL:        stripe.String(s.opts.SuccessURL + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(s.opts.CancelURL),
	}
	if order.ShippingEmail != "" {
		params.CustomerEmail = stripe.String(order.ShippingEmail)
	}
	params.AddMetadata("order_id", order.ID.String())
	params.AddMetadata("order_number", order.OrderNumber)

	session, err := s.stripe.CreateSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "stripe: create checkout session")
	}

	sessionID := session.ID
	order.StripeSessionID = &sessionID
	if err := s.repo.SaveOrder(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: save order")
	}

	return &CheckoutSessionDTO{SessionID: session.ID, URL: session.URL}, nil
}

// ConfirmPayment is the browser-initiated settlement path. The session is
// re-read from Stripe rather than trusted from the redirect query string.
func (s *service) ConfirmPayment(ctx context.Context, userID uuid.UUID, sessionID string) (*orders.OrderDTO, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}

	session, err := s.stripe.GetSession(ctx, sessionID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "stripe: get checkout session")
	}
	if session.ClientReferenceID != userID.String() {
		return nil, pkgerrors.New(pkgerrors.CodePaymentOwnership, "checkout session belongs to another user")
	}
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil, pkgerrors.New(pkgerrors.CodePaymentNotCompleted, "payment has not completed").
			WithDetails(map[string]any{"payment_status": session.PaymentStatus})
	}

	order, err := s.reconcile(ctx, session)
	if err != nil {
		return nil, err
	}
	return orders.NewOrderDTO(order), nil
}

// HandleEvent is the webhook settlement path.
func (s *service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
		}
		if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			// Async payment methods complete later; the follow-up event settles.
			return nil
		}
		_, err := s.reconcile(ctx, &session)
		return err
	default:
		return nil
	}
}

// reconcile marks the order behind a paid checkout session as settled. The
// unique index on the payment intent reference makes the two settlement paths
// collapse into one write; the loser of the race re-reads the winner's row.
func (s *service) reconcile(ctx context.Context, session *stripe.CheckoutSession) (*models.Order, error) {
	intentID := paymentIntentID(session)
	if intentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent missing from session")
	}

	settled, err := s.repo.FindByPaymentIntentID(ctx, intentID)
	if err == nil {
		return settled, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find order by payment intent")
	}

	orderID, err := uuid.Parse(session.Metadata["order_id"])
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference missing from session")
	}

	var order *models.Order
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find order")
		}
		if found.PaymentStatus == enums.PaymentStatusPaid {
			order = found
			return nil
		}

		now := time.Now().UTC()
		found.StripePaymentIntentID = &intentID
		found.PaymentStatus = enums.PaymentStatusPaid
		found.PaidAt = &now
		applyShippingFallback(found, session)

		if err := repo.SaveOrder(ctx, found); err != nil {
			return err
		}
		order = found
		return nil
	})
	if txErr != nil {
		if db.IsUniqueViolation(txErr, paymentIntentIndex) {
			return s.findSettled(ctx, intentID)
		}
		if pkgErr := pkgerrors.As(txErr); pkgErr != nil {
			return nil, txErr
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "db: settle order")
	}
	return order, nil
}

func (s *service) findSettled(ctx context.Context, intentID string) (*models.Order, error) {
	order, err := s.repo.FindByPaymentIntentID(ctx, intentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: find settled order")
	}
	return order, nil
}

func paymentIntentID(session *stripe.CheckoutSession) string {
	if session == nil || session.PaymentIntent == nil {
		return ""
	}
	return session.PaymentIntent.ID
}

// applyShippingFallback fills blank shipping fields from what Stripe
// collected during checkout. Values the customer set at order time win.
func applyShippingFallback(order *models.Order, session *stripe.CheckoutSession) {
	details := session.CustomerDetails
	if details == nil {
		return
	}
	if order.ShippingName == "" && details.Name != "" {
		order.ShippingName = details.Name
	}
	if order.ShippingEmail == "" && details.Email != "" {
		order.ShippingEmail = details.Email
	}
	if order.ShippingPhone == "" && details.Phone != "" {
		order.ShippingPhone = details.Phone
	}
	if details.Address == nil {
		return
	}
	if order.ShippingAddress == "" && details.Address.Line1 != "" {
		order.ShippingAddress = details.Address.Line1
	}
	if order.ShippingCity == "" && details.Address.City != "" {
		order.ShippingCity = details.Address.City
	}
	if order.ShippingPostalCode == "" && details.Address.PostalCode != "" {
		order.ShippingPostalCode = details.Address.PostalCode
	}
	if order.ShippingCountry == "" && details.Address.Country != "" {
		order.ShippingCountry = details.Address.Country
	}
}
