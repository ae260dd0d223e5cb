package models

import "time"

// User is the ledger root: one row per Discord identity that has ever started
// a purchase. TotalSlots is only ever mutated by the webhook event processor.
type User struct {
	DiscordID        string    `gorm:"primaryKey;type:text;column:discord_id" json:"discord_id"`
	StripeCustomerID *string   `gorm:"uniqueIndex;type:text;column:stripe_customer_id" json:"stripe_customer_id,omitempty"`
	TotalSlots       int       `gorm:"not null;default:0;column:total_slots" json:"total_slots"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
