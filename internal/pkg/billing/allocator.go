package billing

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voxaria/voxpremium/app/models"
)

// ActivateBoost spends one of the user's purchased slots on a guild. The whole
// check-and-insert runs in one transaction:
//
//  1. the user row is locked FOR UPDATE to serialize spends by the same user,
//  2. a transaction-scoped advisory lock keyed by guild id serializes
//     activations for the same guild across all server processes (there is no
//     boost row to lock before it exists),
//  3. caps are re-counted under those locks before the insert.
//
// Business refusals (unknown user, slots exhausted, guild at capacity) come
// back as (false, nil); callers re-query state if they need a reason.
func (s *Service) ActivateBoost(ctx context.Context, guildID int64, userID string, maxBoostsPerGuild int) (bool, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, "discord_id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoSuchUser
			}
			return err
		}

		var used int64
		if err := tx.Model(&models.GuildBoost{}).Where("user_id = ?", userID).Count(&used).Error; err != nil {
			return err
		}
		if used >= int64(user.TotalSlots) {
			return ErrSlotsExhausted
		}

		// Advisory lock is released automatically on commit or rollback.
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", guildID).Error; err != nil {
			return err
		}

		var current int64
		if err := tx.Model(&models.GuildBoost{}).Where("guild_id = ?", guildID).Count(&current).Error; err != nil {
			return err
		}
		if current >= int64(maxBoostsPerGuild) {
			return ErrGuildAtCapacity
		}

		return tx.Create(&models.GuildBoost{GuildID: guildID, UserID: userID}).Error
	})

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNoSuchUser), errors.Is(err, ErrSlotsExhausted), errors.Is(err, ErrGuildAtCapacity):
		log.Debugf("boost activation refused for guild %d user %s: %v", guildID, userID, err)
		return false, nil
	default:
		return false, err
	}
}

// DeactivateBoost releases one boost the user holds on the guild. Exactly one
// physical row is locked and deleted even if the user has stacked several
// boosts on the same guild.
func (s *Service) DeactivateBoost(ctx context.Context, guildID int64, userID string) (bool, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var boostID uint
		row := tx.Raw(
			"SELECT id FROM guild_boosts WHERE guild_id = ? AND user_id = ? ORDER BY id LIMIT 1 FOR UPDATE",
			guildID, userID,
		).Row()
		if err := row.Scan(&boostID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrBoostNotFound
			}
			return err
		}

		res := tx.Exec("DELETE FROM guild_boosts WHERE id = ?", boostID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrBoostNotFound
		}
		return nil
	})

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrBoostNotFound):
		return false, nil
	default:
		return false, err
	}
}

// GuildBoostCount returns the number of boosts currently applied to a guild.
func (s *Service) GuildBoostCount(ctx context.Context, guildID int64) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.GuildBoost{}).Where("guild_id = ?", guildID).Count(&count).Error
	return int(count), err
}

// GuildBoostCountsBatch returns boost counts for many guilds at once; guilds
// without boosts are present with a zero count.
func (s *Service) GuildBoostCountsBatch(ctx context.Context, guildIDs []int64) (map[int64]int, error) {
	result := make(map[int64]int, len(guildIDs))
	for _, id := range guildIDs {
		result[id] = 0
	}
	if len(guildIDs) == 0 {
		return result, nil
	}

	rows := []struct {
		GuildID int64
		Count   int
	}{}
	err := s.db.WithContext(ctx).Model(&models.GuildBoost{}).
		Select("guild_id, COUNT(*) as count").
		Where("guild_id IN ?", guildIDs).
		Group("guild_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		result[r.GuildID] = r.Count
	}
	return result, nil
}

// IsGuildBoosted reports whether a guild has at least one active boost.
func (s *Service) IsGuildBoosted(ctx context.Context, guildID int64) (bool, error) {
	count, err := s.GuildBoostCount(ctx, guildID)
	return count > 0, err
}
