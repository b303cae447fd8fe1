package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/coupon"
	"github.com/stripe/stripe-go/v79/webhook"
)

const (
	eventCheckoutCompleted = "checkout.session.completed"
	currency               = "usd"
)

// StripeProvider implements Provider against Stripe Checkout.
type StripeProvider struct {
	webhookSecret string
}

// NewStripeProvider configures the global Stripe client key and returns the
// provider. The webhook secret is the shared secret for signature checks.
func NewStripeProvider(apiKey, webhookSecret string) *StripeProvider {
	stripe.Key = apiKey
	return &StripeProvider{webhookSecret: webhookSecret}
}

func (p *StripeProvider) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.LineItems))
	for _, item := range req.LineItems {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Image != "" {
			productData.Images = stripe.StringSlice([]string{item.Image})
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				ProductData: productData,
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		CustomerEmail:      stripe.String(req.CustomerEmail),
		ClientReferenceID:  stripe.String(req.ClientRefID),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice([]string{"US", "CA"}),
		},
		BillingAddressCollection: stripe.String("required"),
		SuccessURL:               stripe.String(req.SuccessURL),
		CancelURL:                stripe.String(req.CancelURL),
	}
	params.Context = ctx
	// Only opaque reference ids go into metadata; the full checkout detail
	// lives in the pending checkout record.
	params.AddMetadata("checkout_id", req.CheckoutID)
	params.AddMetadata("user_id", req.UserID)

	if req.Discount > 0 {
		c, err := coupon.New(&stripe.CouponParams{
			AmountOff: stripe.Int64(req.Discount),
			Currency:  stripe.String(currency),
			Name:      stripe.String("Order Discount"),
			Duration:  stripe.String(string(stripe.CouponDurationOnce)),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: coupon: %v", ErrSessionCreate, err)
		}
		params.Discounts = []*stripe.CheckoutSessionDiscountParams{
			{Coupon: stripe.String(c.ID)},
		}
	}

	sess, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionCreate, err)
	}

	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

func (p *StripeProvider) VerifyEvent(payload []byte, signature string) (*Event, error) {
	stripeEvent, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	event := &Event{ID: stripeEvent.ID, Type: string(stripeEvent.Type)}

	if event.Type != eventCheckoutCompleted {
		log.Printf("[Payment] Ignoring event type %s", event.Type)
		return event, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(stripeEvent.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("failed to parse checkout session from event %s: %w", event.ID, err)
	}

	completed := &CompletedPayment{
		SessionID:  sess.ID,
		CheckoutID: sess.Metadata["checkout_id"],
		UserID:     sess.Metadata["user_id"],
	}
	if sess.PaymentIntent != nil {
		completed.PaymentIntentID = sess.PaymentIntent.ID
	}
	event.Completed = completed
	return event, nil
}
