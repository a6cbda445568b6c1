package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/mercavia/tienda-backend/internal/orders"
	"github.com/mercavia/tienda-backend/pkg/db/models"
	"github.com/mercavia/tienda-backend/pkg/enums"
	pkgerrors "github.com/mercavia/tienda-backend/pkg/errors"
	"github.com/mercavia/tienda-backend/pkg/pagination"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOrderRepo struct {
	orders    map[uuid.UUID]*models.Order
	saveCount int
}

func newStubOrderRepo(seed ...*models.Order) *stubOrderRepo {
	repo := &stubOrderRepo{orders: make(map[uuid.UUID]*models.Order)}
	for _, order := range seed {
		repo.orders[order.ID] = order
	}
	return repo
}

func (r *stubOrderRepo) WithTx(tx *gorm.DB) orders.Repository { return r }

func (r *stubOrderRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	r.orders[order.ID] = order
	return order, nil
}

func (r *stubOrderRepo) CreateOrderItems(ctx context.Context, items []models.OrderItem) error {
	return nil
}

func (r *stubOrderRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if order, ok := r.orders[orderID]; ok {
		return order, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubOrderRepo) FindByPaymentIntentID(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	for _, order := range r.orders {
		if order.StripePaymentIntentID != nil && *order.StripePaymentIntentID == paymentIntentID {
			return order, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubOrderRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, error) {
	return nil, nil
}

func (r *stubOrderRepo) SaveOrder(ctx context.Context, order *models.Order) error {
	r.saveCount++
	r.orders[order.ID] = order
	return nil
}

func (r *stubOrderRepo) FindCartItemsForUpdate(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	return nil, nil
}

func (r *stubOrderRepo) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) (int64, error) {
	return 1, nil
}

func (r *stubOrderRepo) ClearCart(ctx context.Context, userID uuid.UUID) error { return nil }

type stubStripeClient struct {
	created  []*stripe.CheckoutSessionParams
	sessions map[string]*stripe.CheckoutSession
	err      error
}

func (c *stubStripeClient) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.created = append(c.created, params)
	id := fmt.Sprintf("cs_test_%d", len(c.created))
	return &stripe.CheckoutSession{ID: id, URL: "https://checkout.stripe.test/" + id}, nil
}

func (c *stubStripeClient) GetSession(ctx context.Context, id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if c.err != nil {
		return nil, c.err
	}
	session, ok := c.sessions[id]
	if !ok {
		return nil, fmt.Errorf("no such session: %s", id)
	}
	return session, nil
}

func testOptions() Options {
	return Options{
		SuccessURL: "https://shop.test/payment/success",
		CancelURL:  "https://shop.test/cart",
		Currency:   "usd",
	}
}

func pendingOrder(userID uuid.UUID) *models.Order {
	return &models.Order{
		ID:            uuid.New(),
		OrderNumber:   "ORD-0AF31B22",
		UserID:        userID,
		Total:         decimal.RequireFromString("30.00"),
		PaymentStatus: enums.PaymentStatusPending,
		Items: []models.OrderItem{{
			ID:          uuid.New(),
			ProductName: "Wool Blanket",
			UnitPrice:   decimal.RequireFromString("15.00"),
			Quantity:    2,
			Subtotal:    decimal.RequireFromString("30.00"),
		}},
	}
}

func newTestService(t *testing.T, repo orders.Repository, client StripeCheckoutClient) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, client, testOptions())
	require.NoError(t, err)
	return svc
}

func TestCreateCheckoutSession(t *testing.T) {
	userID := uuid.New()
	order := pendingOrder(userID)
	repo := newStubOrderRepo(order)
	client := &stubStripeClient{}
	svc := newTestService(t, repo, client)

	dto, err := svc.CreateCheckoutSession(context.Background(), userID, order.ID)
	require.NoError(t, err)
	require.Equal(t, "cs_test_1", dto.SessionID)
	require.NotEmpty(t, dto.URL)

	require.Len(t, client.created, 1)
	params := client.created[0]
	require.Equal(t, userID.String(), *params.ClientReferenceID)
	require.Len(t, params.LineItems, 1)
	require.Equal(t, int64(1500), *params.LineItems[0].PriceData.UnitAmount)
	require.Equal(t, int64(2), *params.LineItems[0].Quantity)
	require.Contains(t, *params.SuccessURL, "{CHECKOUT_SESSION_ID}")

	require.NotNil(t, order.StripeSessionID)
	require.Equal(t, "cs_test_1", *order.StripeSessionID)
}

func TestCreateCheckoutSessionOwnershipAndState(t *testing.T) {
	userID := uuid.New()
	order := pendingOrder(userID)
	repo := newStubOrderRepo(order)
	svc := newTestService(t, repo, &stubStripeClient{})

	_, err := svc.CreateCheckoutSession(context.Background(), uuid.New(), order.ID)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	order.PaymentStatus = enums.PaymentStatusPaid
	_, err = svc.CreateCheckoutSession(context.Background(), userID, order.ID)
	require.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestCreateCheckoutSessionGatewayFailure(t *testing.T) {
	userID := uuid.New()
	order := pendingOrder(userID)
	repo := newStubOrderRepo(order)
	svc := newTestService(t, repo, &stubStripeClient{err: fmt.Errorf("stripe is down")})

	_, err := svc.CreateCheckoutSession(context.Background(), userID, order.ID)
	require.Equal(t, pkgerrors.CodeGateway, pkgerrors.As(err).Code())
}

func paidSession(order *models.Order, userID uuid.UUID, intentID string) *stripe.CheckoutSession {
	return &stripe.CheckoutSession{
		ID:                "cs_test_paid",
		ClientReferenceID: userID.String(),
		PaymentStatus:     stripe.CheckoutSessionPaymentStatusPaid,
		PaymentIntent:     &stripe.PaymentIntent{ID: intentID},
		Metadata:          map[string]string{"order_id": order.ID.String()},
		CustomerDetails: &stripe.CheckoutSessionCustomerDetails{
			Name:  "Ana Quispe",
			Email: "ana@test.dev",
			Address: &stripe.Address{
				Line1:      "Av. Arequipa 1234",
				City:       "Lima",
				PostalCode: "15046",
				Country:    "PE",
			},
		},
	}
}

func TestConfirmPaymentSettlesOrder(t *testing.T) {
	userID := uuid.New()
	order := pendingOrder(userID)
	repo := newStubOrderRepo(order)
	client := &stubStripeClient{sessions: map[string]*stripe.CheckoutSession{
		"cs_test_paid": paidSession(order, userID, "pi_123"),
	}}
	svc := newTestService(t, repo, client)

	dto, err := svc.ConfirmPayment(context.Background(), userID, "cs_test_paid")
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPaid, dto.PaymentStatus)
	require.NotNil(t, dto.PaidAt)
	require.NotNil(t, dto.StripePaymentIntentID)
	require.Equal(t, "pi_123", *dto.StripePaymentIntentID)
	// Blank shipping fields are backfilled from what checkout collected.
	require.Equal(t, "Ana Quispe", dto.Shipping.Name)
	require.Equal(t, "Lima", dto.Shipping.City)
	require.Equal(t, 1, repo.saveCount)
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	userID := uuid.New()
	order := pendingOrder(userID)
	repo := newStubOrderRepo(order)
	client := &stubStripeClient{sessions: map[string]*stripe.CheckoutSession{
		"cs_test_paid": paidSession(order, userID, "pi_123"),
	}}
	svc := newTestService(t, repo, client)

	first, err := svc.ConfirmPayment(context.Background(), userID, "cs_test_paid")
	require.NoError(t, err)
	second, err := svc.ConfirmPayment(context.Background(), userID, "cs_test_paid")
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 1, repo.saveCount)
}

func TestConfirmPaymentRejectsUnpaidSession(t *testing.T) {
	userID := uuid.New()
	order := pendingOrder(userID)
	session := paidSession(order, userID, "pi_123")
	session.PaymentStatus = stripe.CheckoutSessionPaymentStatusUnpaid
	repo := newStubOrderRepo(order)
	client := &stubStripeClient{sessions: map[string]*stripe.CheckoutSession{"cs_test_paid": session}}
	svc := newTestService(t, repo, client)

	_, err := svc.ConfirmPayment(context.Background(), userID, "cs_test_paid")
	require.Equal(t, pkgerrors.CodePaymentNotCompleted, pkgerrors.As(err).Code())
	require.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
}

func TestConfirmPaymentRejectsForeignSession(t *testing.T) {
	owner := uuid.New()
	order := pendingOrder(owner)
	repo := newStubOrderRepo(order)
	client := &stubStripeClient{sessions: map[string]*stripe.CheckoutSession{
		"cs_test_paid": paidSession(order, owner, "pi_123"),
	}}
	svc := newTestService(t, repo, client)

	_, err := svc.ConfirmPayment(context.Background(), uuid.New(), "cs_test_paid")
	require.Equal(t, pkgerrors.CodePaymentOwnership, pkgerrors.As(err).Code())
}

func TestHandleEventSettlesCompletedCheckout(t *testing.T) {
	userID := uuid.New()
	order := pendingOrder(userID)
	repo := newStubOrderRepo(order)
	svc := newTestService(t, repo, &stubStripeClient{})

	raw, err := json.Marshal(map[string]any{
		"id":             "cs_test_paid",
		"payment_status": "paid",
		"payment_intent": "pi_456",
		"metadata":       map[string]string{"order_id": order.ID.String()},
	})
	require.NoError(t, err)

	event := &stripe.Event{
		Type: stripe.EventTypeCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: raw},
	}
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	require.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)
	require.Equal(t, "pi_456", *order.StripePaymentIntentID)

	// Redelivery settles nothing twice.
	require.NoError(t, svc.HandleEvent(context.Background(), event))
	require.Equal(t, 1, repo.saveCount)
}

func TestHandleEventSettlesAsyncPaymentSuccess(t *testing.T) {
	userID := uuid.New()
	order := pendingOrder(userID)
	repo := newStubOrderRepo(order)
	svc := newTestService(t, repo, &stubStripeClient{})

	raw, err := json.Marshal(map[string]any{
		"id":             "cs_test_async",
		"payment_status": "paid",
		"payment_intent": "pi_sepa_1",
		"metadata":       map[string]string{"order_id": order.ID.String()},
	})
	require.NoError(t, err)

	require.NoError(t, svc.HandleEvent(context.Background(), &stripe.Event{
		Type: stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		Data: &stripe.EventData{Raw: raw},
	}))
	require.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)
	require.Equal(t, "pi_sepa_1", *order.StripePaymentIntentID)
	require.Equal(t, 1, repo.saveCount)
}

func TestHandleEventIgnoresUnpaidAndUnknown(t *testing.T) {
	userID := uuid.New()
	order := pendingOrder(userID)
	repo := newStubOrderRepo(order)
	svc := newTestService(t, repo, &stubStripeClient{})

	raw, err := json.Marshal(map[string]any{
		"id":             "cs_test_async",
		"payment_status": "unpaid",
		"payment_intent": "pi_789",
		"metadata":       map[string]string{"order_id": order.ID.String()},
	})
	require.NoError(t, err)

	require.NoError(t, svc.HandleEvent(context.Background(), &stripe.Event{
		Type: stripe.EventTypeCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: raw},
	}))
	require.NoError(t, svc.HandleEvent(context.Background(), &stripe.Event{
		Type: stripe.EventTypeInvoicePaid,
		Data: &stripe.EventData{Raw: []byte("{}")},
	}))
	require.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	require.Equal(t, 0, repo.saveCount)
}
