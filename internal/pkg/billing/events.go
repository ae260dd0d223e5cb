package billing

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Stripe event types the ledger acts on. Anything else is accepted and
// ignored so new provider event types never break webhook delivery.
const (
	eventTypeCheckoutCompleted   = "checkout.session.completed"
	eventTypeSubscriptionDeleted = "customer.subscription.deleted"
	eventTypeChargeRefunded      = "charge.refunded"
)

// EventKind discriminates the parsed webhook event union.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventCheckoutCompleted
	EventSubscriptionDeleted
	EventChargeRefunded
)

// CheckoutCompleted is emitted once per completed purchase; each one grants
// exactly one slot.
type CheckoutCompleted struct {
	CustomerID string
	DiscordID  string
}

// SubscriptionDeleted revokes the whole subscription: every slot and boost.
type SubscriptionDeleted struct {
	CustomerID string
}

// ChargeRefunded takes back a single slot.
type ChargeRefunded struct {
	CustomerID string
}

// Event is a webhook event parsed and validated once at the boundary. Exactly
// one of the payload pointers is non-nil for known kinds.
type Event struct {
	ID   string
	Type string
	Kind EventKind

	CheckoutCompleted   *CheckoutCompleted
	SubscriptionDeleted *SubscriptionDeleted
	ChargeRefunded      *ChargeRefunded
}

type stripeEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object stripeObject `json:"object"`
	} `json:"data"`
}

type stripeObject struct {
	Customer string            `json:"customer"`
	Metadata map[string]string `json:"metadata"`
}

// ParseStripeEvent decodes a verified webhook body into the event union.
// Known event types missing their required fields are rejected as malformed;
// unknown types parse successfully into an EventUnknown no-op.
func ParseStripeEvent(payload []byte) (*Event, error) {
	var env stripeEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(env.ID) == "" || strings.TrimSpace(env.Type) == "" {
		return nil, fmt.Errorf("%w: missing event id or type", ErrMalformedPayload)
	}

	ev := &Event{ID: env.ID, Type: env.Type, Kind: EventUnknown}
	obj := env.Data.Object

	switch env.Type {
	case eventTypeCheckoutCompleted:
		discordID := strings.TrimSpace(obj.Metadata["discord_id"])
		if obj.Customer == "" || discordID == "" {
			return nil, fmt.Errorf("%w: %s without customer or discord_id metadata", ErrMalformedPayload, env.Type)
		}
		ev.Kind = EventCheckoutCompleted
		ev.CheckoutCompleted = &CheckoutCompleted{CustomerID: obj.Customer, DiscordID: discordID}

	case eventTypeSubscriptionDeleted:
		if obj.Customer == "" {
			return nil, fmt.Errorf("%w: %s without customer", ErrMalformedPayload, env.Type)
		}
		ev.Kind = EventSubscriptionDeleted
		ev.SubscriptionDeleted = &SubscriptionDeleted{CustomerID: obj.Customer}

	case eventTypeChargeRefunded:
		if obj.Customer == "" {
			return nil, fmt.Errorf("%w: %s without customer", ErrMalformedPayload, env.Type)
		}
		ev.Kind = EventChargeRefunded
		ev.ChargeRefunded = &ChargeRefunded{CustomerID: obj.Customer}
	}

	return ev, nil
}
