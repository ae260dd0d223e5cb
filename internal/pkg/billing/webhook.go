package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voxaria/voxpremium/app/models"
)

// ProcessEvent applies a verified, parsed webhook event to the ledger exactly
// once. The idempotency check, the handler's mutations and the marker insert
// all share one transaction: either the event fully applies and is marked
// processed, or nothing is visible.
func (s *Service) ProcessEvent(ctx context.Context, ev *Event) (ProcessResult, error) {
	var res ProcessResult

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seen int64
		if err := tx.Model(&models.ProcessedStripeEvent{}).Where("event_id = ?", ev.ID).Count(&seen).Error; err != nil {
			return err
		}
		if seen > 0 {
			res.AlreadyProcessed = true
			return nil
		}

		switch ev.Kind {
		case EventCheckoutCompleted:
			return s.applyCheckoutCompleted(tx, ev.ID, ev.CheckoutCompleted)
		case EventSubscriptionDeleted:
			return s.applySubscriptionDeleted(tx, ev.ID, ev.SubscriptionDeleted)
		case EventChargeRefunded:
			return s.applyChargeRefunded(tx, ev.ID, ev.ChargeRefunded, &res)
		default:
			// Forward compatibility: unknown types succeed without touching
			// the ledger and without consuming the event id.
			res.Ignored = true
			return nil
		}
	})
	if err != nil {
		return ProcessResult{}, err
	}

	if res.AlreadyProcessed {
		log.Infof("stripe event %s already processed, skipping", ev.ID)
	}
	return res, nil
}

// applyCheckoutCompleted links the Stripe customer to the Discord user and
// grants one slot.
func (s *Service) applyCheckoutCompleted(tx *gorm.DB, eventID string, data *CheckoutCompleted) error {
	if err := createOrUpdateUser(tx, data.DiscordID, &data.CustomerID); err != nil {
		return err
	}
	if err := tx.Exec(
		"UPDATE users SET total_slots = total_slots + 1 WHERE stripe_customer_id = ?",
		data.CustomerID,
	).Error; err != nil {
		return err
	}
	log.Infof("checkout completed: granted slot to user %s (customer %s)", data.DiscordID, data.CustomerID)
	return markEventProcessed(tx, eventID)
}

// applySubscriptionDeleted is a full reset: all boosts removed, zero slots.
// A customer the ledger has never seen still consumes the event.
func (s *Service) applySubscriptionDeleted(tx *gorm.DB, eventID string, data *SubscriptionDeleted) error {
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, "stripe_customer_id = ?", data.CustomerID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		log.Warnf("subscription deleted for unknown customer %s", data.CustomerID)
		return markEventProcessed(tx, eventID)
	case err != nil:
		return err
	}

	if err := tx.Where("user_id = ?", user.DiscordID).Delete(&models.GuildBoost{}).Error; err != nil {
		return err
	}
	if err := tx.Model(&models.User{}).Where("discord_id = ?", user.DiscordID).
		Update("total_slots", 0).Error; err != nil {
		return err
	}
	log.Infof("subscription deleted: reset slots for user %s", user.DiscordID)
	return markEventProcessed(tx, eventID)
}

// applyChargeRefunded takes back one slot, floored at zero, and evicts the
// newest boosts until the user fits the reduced total.
func (s *Service) applyChargeRefunded(tx *gorm.DB, eventID string, data *ChargeRefunded, res *ProcessResult) error {
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&user, "stripe_customer_id = ?", data.CustomerID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Leave the event unconsumed; a retry after the customer gets linked
		// can still reconcile.
		log.Warnf("refund for unknown customer %s, ignoring", data.CustomerID)
		res.Ignored = true
		return nil
	case err != nil:
		return err
	}

	newTotal := user.TotalSlots - 1
	if newTotal < 0 {
		newTotal = 0
	}
	if err := tx.Model(&models.User{}).Where("discord_id = ?", user.DiscordID).
		Update("total_slots", newTotal).Error; err != nil {
		return err
	}

	var boosts []models.GuildBoost
	if err := tx.Where("user_id = ?", user.DiscordID).
		Order("created_at DESC, id DESC").
		Find(&boosts).Error; err != nil {
		return err
	}

	for _, boost := range evictionPlan(boosts, newTotal) {
		if err := tx.Delete(&models.GuildBoost{}, boost.ID).Error; err != nil {
			return err
		}
		res.RemovedGuilds = append(res.RemovedGuilds, boost.GuildID)
	}

	log.Infof("refund handled for user %s: %d -> %d slots, removed guilds %v",
		user.DiscordID, user.TotalSlots, newTotal, res.RemovedGuilds)
	return markEventProcessed(tx, eventID)
}

// evictionPlan picks which boosts must go after a slot reduction: the newest
// first, until only keep remain. boosts must be sorted newest first.
func evictionPlan(boosts []models.GuildBoost, keep int) []models.GuildBoost {
	if keep < 0 {
		keep = 0
	}
	if len(boosts) <= keep {
		return nil
	}
	return boosts[:len(boosts)-keep]
}

// markEventProcessed consumes the event id with a plain insert. If a concurrent
// delivery of the same event committed first, this hits the primary key and the
// whole transaction rolls back, so the mutation never applies twice; the retry
// then takes the already-processed short circuit.
func markEventProcessed(tx *gorm.DB, eventID string) error {
	return tx.Create(&models.ProcessedStripeEvent{EventID: eventID}).Error
}

// IsEventProcessed reports whether an event id has already been consumed.
func (s *Service) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var seen int64
	err := s.db.WithContext(ctx).Model(&models.ProcessedStripeEvent{}).
		Where("event_id = ?", eventID).Count(&seen).Error
	return seen > 0, err
}

// PurgeProcessedEvents deletes idempotency markers older than retention.
func (s *Service) PurgeProcessedEvents(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	res := s.db.WithContext(ctx).
		Where("processed_at < ?", cutoff).
		Delete(&models.ProcessedStripeEvent{})
	if res.Error != nil {
		return 0, fmt.Errorf("purging processed events: %w", res.Error)
	}
	return res.RowsAffected, nil
}
