package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStripeEventCheckoutCompleted(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {"customer": "cus_1", "metadata": {"discord_id": "1234"}}}
	}`)

	ev, err := ParseStripeEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, EventCheckoutCompleted, ev.Kind)
	require.NotNil(t, ev.CheckoutCompleted)
	assert.Equal(t, "cus_1", ev.CheckoutCompleted.CustomerID)
	assert.Equal(t, "1234", ev.CheckoutCompleted.DiscordID)
}

func TestParseStripeEventCheckoutMissingDiscordID(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {"customer": "cus_1", "metadata": {}}}
	}`)

	_, err := ParseStripeEvent(payload)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestParseStripeEventCheckoutMissingCustomer(t *testing.T) {
	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {"metadata": {"discord_id": "1234"}}}
	}`)

	_, err := ParseStripeEvent(payload)
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestParseStripeEventSubscriptionDeleted(t *testing.T) {
	payload := []byte(`{
		"id": "evt_2",
		"type": "customer.subscription.deleted",
		"data": {"object": {"customer": "cus_1"}}
	}`)

	ev, err := ParseStripeEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, EventSubscriptionDeleted, ev.Kind)
	require.NotNil(t, ev.SubscriptionDeleted)
	assert.Equal(t, "cus_1", ev.SubscriptionDeleted.CustomerID)
}

func TestParseStripeEventChargeRefunded(t *testing.T) {
	payload := []byte(`{
		"id": "evt_3",
		"type": "charge.refunded",
		"data": {"object": {"customer": "cus_1"}}
	}`)

	ev, err := ParseStripeEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, EventChargeRefunded, ev.Kind)
}

func TestParseStripeEventUnknownType(t *testing.T) {
	payload := []byte(`{
		"id": "evt_4",
		"type": "invoice.paid",
		"data": {"object": {}}
	}`)

	ev, err := ParseStripeEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, EventUnknown, ev.Kind)
	assert.Equal(t, "invoice.paid", ev.Type)
	assert.Nil(t, ev.CheckoutCompleted)
	assert.Nil(t, ev.SubscriptionDeleted)
	assert.Nil(t, ev.ChargeRefunded)
}

func TestParseStripeEventRejectsGarbage(t *testing.T) {
	_, err := ParseStripeEvent([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}

func TestParseStripeEventRejectsMissingIDOrType(t *testing.T) {
	_, err := ParseStripeEvent([]byte(`{"type": "charge.refunded", "data": {"object": {"customer": "cus_1"}}}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)

	_, err = ParseStripeEvent([]byte(`{"id": "evt_1", "data": {"object": {}}}`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
}
