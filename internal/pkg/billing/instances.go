package billing

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/voxaria/voxpremium/app/models"
	"github.com/voxaria/voxpremium/internal/pkg/cache"
)

const (
	botInstancesCacheKey = "bot_instances:active"
	botInstancesCacheTTL = 5 * time.Minute
)

// ActiveBotInstances lists deployed bot instances, cached briefly since the
// table only changes on deploys. The per-guild cap derived from it is
// re-validated inside the allocator transaction, so cache staleness can never
// over-allocate.
func (s *Service) ActiveBotInstances(ctx context.Context) ([]models.BotInstance, error) {
	if s.cache != nil {
		var cached []models.BotInstance
		err := s.cache.GetJSON(ctx, botInstancesCacheKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			log.Warnf("bot instance cache read failed: %v", err)
		}
	}

	var instances []models.BotInstance
	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&instances).Error; err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, botInstancesCacheKey, instances, botInstancesCacheTTL); err != nil {
			log.Warnf("bot instance cache write failed: %v", err)
		}
	}
	return instances, nil
}

// MaxBoostsPerGuild is the per-guild allocation cap: one boost per active bot
// instance.
func (s *Service) MaxBoostsPerGuild(ctx context.Context) (int, error) {
	instances, err := s.ActiveBotInstances(ctx)
	if err != nil {
		return 0, err
	}
	return len(instances), nil
}
