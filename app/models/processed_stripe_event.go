package models

import "time"

// ProcessedStripeEvent is the idempotency marker for Stripe webhook delivery.
// Rows are purged after the replay-risk retention window has passed.
type ProcessedStripeEvent struct {
	EventID     string    `gorm:"primaryKey;type:text;column:event_id" json:"event_id"`
	ProcessedAt time.Time `gorm:"autoCreateTime;column:processed_at" json:"processed_at"`
}

func (ProcessedStripeEvent) TableName() string {
	return "processed_stripe_events"
}
