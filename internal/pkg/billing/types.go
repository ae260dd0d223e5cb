package billing

import "github.com/voxaria/voxpremium/app/models"

// UserBilling is the read model returned to the billing status endpoint.
type UserBilling struct {
	DiscordID        string              `json:"discord_id"`
	StripeCustomerID *string             `json:"stripe_customer_id,omitempty"`
	TotalSlots       int                 `json:"total_slots"`
	Boosts           []models.GuildBoost `json:"boosts"`
}

// UsedSlots is the number of slots currently consumed by boosts.
func (b *UserBilling) UsedSlots() int {
	return len(b.Boosts)
}

// ProcessResult reports what a webhook event did to the ledger.
type ProcessResult struct {
	AlreadyProcessed bool    `json:"already_processed,omitempty"`
	Ignored          bool    `json:"ignored,omitempty"`
	RemovedGuilds    []int64 `json:"removed_guilds,omitempty"`
}
