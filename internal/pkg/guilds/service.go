package guilds

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voxaria/voxpremium/app/models"
)

// Dictionary size limits; the premium limit applies once the guild holds at
// least one boost.
const (
	FreeDictLimit    = 10
	PremiumDictLimit = 100
)

// ErrDictLimitReached is returned when a guild dictionary is full.
var ErrDictLimitReached = errors.New("guilds: dictionary limit reached")

// Service owns per-guild settings and dictionary storage.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// GetSettings returns the stored settings merged over the defaults, or nil if
// the guild has never been configured.
func (s *Service) GetSettings(ctx context.Context, guildID int64) (map[string]any, error) {
	var record models.GuildSettings
	err := s.db.WithContext(ctx).First(&record, "guild_id = ?", guildID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record.MergedSettings(), nil
}

// UpdateSettings applies a partial update on top of the stored settings.
// Premium-only values are clamped down when the guild holds no boost.
func (s *Service) UpdateSettings(ctx context.Context, guildID int64, patch map[string]any, boosted bool) error {
	clampSettings(patch, boosted)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.GuildSettings
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&record, "guild_id = ?", guildID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			record = models.GuildSettings{GuildID: guildID, Settings: map[string]any{}}
		} else if err != nil {
			return err
		}

		for k, v := range patch {
			record.Settings[k] = v
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"settings"}),
		}).Create(&record).Error
	})
}

// clampSettings enforces the free tier: short messages only and no auto-join.
func clampSettings(patch map[string]any, boosted bool) {
	maxChars := models.PremiumMaxChars
	if !boosted {
		maxChars = models.FreeMaxChars
		patch["auto_join"] = false
	}
	if v, ok := patch["max_chars"]; ok {
		if n, ok := toInt(v); ok && n > maxChars {
			patch["max_chars"] = maxChars
		}
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// GetDict returns the guild dictionary; empty map if none exists.
func (s *Service) GetDict(ctx context.Context, guildID int64) (map[string]string, error) {
	var record models.GuildDict
	err := s.db.WithContext(ctx).First(&record, "guild_id = ?", guildID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	if record.Dict == nil {
		return map[string]string{}, nil
	}
	return record.Dict, nil
}

// AddDictEntry upserts one word. The size limit depends on the guild's boost
// state; overwriting an existing word is always allowed.
func (s *Service) AddDictEntry(ctx context.Context, guildID int64, word, reading string, boosted bool) error {
	limit := FreeDictLimit
	if boosted {
		limit = PremiumDictLimit
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.GuildDict
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&record, "guild_id = ?", guildID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			record = models.GuildDict{GuildID: guildID, Dict: map[string]string{}}
		} else if err != nil {
			return err
		}
		if record.Dict == nil {
			record.Dict = map[string]string{}
		}

		if _, exists := record.Dict[word]; !exists && len(record.Dict) >= limit {
			return fmt.Errorf("%w (%d)", ErrDictLimitReached, limit)
		}

		record.Dict[word] = reading
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"dict"}),
		}).Create(&record).Error
	})
}

// DeleteDictEntry removes a word; deleting a missing word is a no-op.
func (s *Service) DeleteDictEntry(ctx context.Context, guildID int64, word string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.GuildDict
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&record, "guild_id = ?", guildID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, exists := record.Dict[word]; !exists {
			return nil
		}

		delete(record.Dict, word)
		return tx.Model(&models.GuildDict{}).Where("guild_id = ?", guildID).
			Update("dict", record.Dict).Error
	})
}
