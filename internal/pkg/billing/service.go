package billing

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voxaria/voxpremium/app/models"
	"github.com/voxaria/voxpremium/internal/pkg/cache"
)

// ProcessedEventRetention is how long idempotency markers are kept. Stripe
// will not redeliver an event after this window, so older markers are dead
// weight and get purged by the maintenance worker.
const ProcessedEventRetention = 30 * 24 * time.Hour

// Service owns the entitlement ledger: users, guild boosts and webhook
// idempotency markers. All mutating operations run in single transactions
// against the shared database; no in-process state participates in
// correctness, so any number of server instances can run concurrently.
type Service struct {
	db    *gorm.DB
	cache *cache.Cache
}

// NewService creates a billing service. cache may be nil; it only serves the
// read-mostly bot instance list and never the ledger itself.
func NewService(db *gorm.DB, c *cache.Cache) *Service {
	return &Service{db: db, cache: c}
}

// CreateOrUpdateUser ensures the user row exists, linking the Stripe customer
// id when one is supplied. The upsert is idempotent under replays.
func (s *Service) CreateOrUpdateUser(ctx context.Context, discordID string, stripeCustomerID *string) error {
	return createOrUpdateUser(s.db.WithContext(ctx), discordID, stripeCustomerID)
}

func createOrUpdateUser(db *gorm.DB, discordID string, stripeCustomerID *string) error {
	user := &models.User{DiscordID: discordID, StripeCustomerID: stripeCustomerID}
	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "discord_id"}},
		DoNothing: true,
	}
	if stripeCustomerID != nil {
		conflict.DoNothing = false
		conflict.DoUpdates = clause.AssignmentColumns([]string{"stripe_customer_id", "updated_at"})
	}
	return db.Clauses(conflict).Create(user).Error
}

// GetUserBilling returns the user's slot totals and boosts, or nil when the
// user has never started a purchase.
func (s *Service) GetUserBilling(ctx context.Context, discordID string) (*UserBilling, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, "discord_id = ?", discordID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var boosts []models.GuildBoost
	if err := db.Where("user_id = ?", discordID).Order("created_at ASC, id ASC").Find(&boosts).Error; err != nil {
		return nil, err
	}

	return &UserBilling{
		DiscordID:        user.DiscordID,
		StripeCustomerID: user.StripeCustomerID,
		TotalSlots:       user.TotalSlots,
		Boosts:           boosts,
	}, nil
}
