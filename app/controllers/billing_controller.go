package controllers

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/voxaria/voxpremium/app/models"
	"github.com/voxaria/voxpremium/internal/pkg/billing"
	"github.com/voxaria/voxpremium/internal/pkg/env"
	"github.com/voxaria/voxpremium/internal/pkg/usercontext"
)

type boostView struct {
	GuildID   string `json:"guild_id"`
	GuildName string `json:"guild_name"`
}

type manageableGuildView struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Icon         string   `json:"icon"`
	BoostCount   int      `json:"boost_count"`
	BotInGuild   bool     `json:"bot_in_guild"`
	Benefits     []string `json:"benefits"`
	IsManageable bool     `json:"is_manageable"`
}

// HandleBillingStatus aggregates the user's slots, boosts and manageable
// guilds for the premium dashboard.
func HandleBillingStatus(c *fiber.Ctx) error {
	sess := usercontext.GetSession(c)
	ctx := c.UserContext()

	status, err := billingSvc.GetUserBilling(ctx, sess.DiscordUserID)
	if err != nil {
		return err
	}
	if status == nil {
		status = &billing.UserBilling{DiscordID: sess.DiscordUserID}
	}

	userGuilds, err := discordClient.FetchUserGuilds(ctx, sess.AccessToken)
	if err != nil {
		log.Warnf("fetching user guilds failed: %v", err)
		userGuilds = nil
	}
	guildNames := make(map[string]string, len(userGuilds))
	guildIDs := make([]int64, 0, len(userGuilds))
	for _, g := range userGuilds {
		guildNames[g.ID] = g.Name
		if id, err := strconv.ParseInt(g.ID, 10, 64); err == nil {
			guildIDs = append(guildIDs, id)
		}
	}

	boosts := make([]boostView, 0, len(status.Boosts))
	for _, b := range status.Boosts {
		idStr := strconv.FormatInt(b.GuildID, 10)
		name, ok := guildNames[idStr]
		if !ok {
			name = "Unknown Server"
		}
		boosts = append(boosts, boostView{GuildID: idStr, GuildName: name})
	}

	instances, err := billingSvc.ActiveBotInstances(ctx)
	if err != nil {
		return err
	}
	botGuilds, err := discordClient.FetchBotGuildIDs(ctx)
	if err != nil {
		log.Warnf("fetching bot guilds failed: %v", err)
		botGuilds = map[string]bool{}
	}
	boostCounts, err := billingSvc.GuildBoostCountsBatch(ctx, guildIDs)
	if err != nil {
		return err
	}

	manageable := make([]manageableGuildView, 0, len(userGuilds))
	for _, g := range userGuilds {
		id, err := strconv.ParseInt(g.ID, 10, 64)
		if err != nil {
			continue
		}
		boostCount := boostCounts[id]
		botInGuild := botGuilds[g.ID]
		if !botInGuild && boostCount == 0 {
			continue
		}
		manageable = append(manageable, manageableGuildView{
			ID:           g.ID,
			Name:         g.Name,
			Icon:         g.Icon,
			BoostCount:   boostCount,
			BotInGuild:   botInGuild,
			Benefits:     benefitsForBoostCount(boostCount, instances),
			IsManageable: g.CanManage(),
		})
	}

	return c.JSON(fiber.Map{
		"total_slots":       status.TotalSlots,
		"used_slots":        status.UsedSlots(),
		"boosts":            boosts,
		"manageable_guilds": manageable,
	})
}

// benefitsForBoostCount maps a guild's boost count to unlocked features: the
// first boost enables premium, each further boost unlocks one more instance.
func benefitsForBoostCount(count int, instances []models.BotInstance) []string {
	benefits := []string{}
	if count >= 1 {
		benefits = append(benefits, "Premium Features")
	}
	for i, inst := range instances {
		if i == 0 {
			continue
		}
		if count >= i+1 {
			benefits = append(benefits, fmt.Sprintf("%s Unlocked", inst.BotName))
		}
	}
	return benefits
}

// HandleBillingConfig exposes the deployed bot instances and the per-guild cap.
func HandleBillingConfig(c *fiber.Ctx) error {
	instances, err := billingSvc.ActiveBotInstances(c.UserContext())
	if err != nil {
		return err
	}

	var clientID0 *string
	if len(instances) > 0 {
		clientID0 = &instances[0].ClientID
	}
	return c.JSON(fiber.Map{
		"bot_instances":        instances,
		"client_id_0":          clientID0,
		"max_boosts_per_guild": len(instances),
	})
}

// HandleCreateCheckoutSession opens a Stripe checkout for one slot. The user
// row is created lazily here so the webhook always finds it.
func HandleCreateCheckoutSession(c *fiber.Ctx) error {
	sess := usercontext.GetSession(c)
	ctx := c.UserContext()

	if err := billingSvc.CreateOrUpdateUser(ctx, sess.DiscordUserID, nil); err != nil {
		return err
	}

	var customerID *string
	if status, err := billingSvc.GetUserBilling(ctx, sess.DiscordUserID); err != nil {
		return err
	} else if status != nil {
		customerID = status.StripeCustomerID
	}

	url, err := stripeClient.CreateCheckoutSession(ctx, sess.DiscordUserID, customerID)
	if err != nil {
		log.Errorf("stripe checkout session creation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "payment_service_error"})
	}
	return c.JSON(fiber.Map{"url": url})
}

// HandleBoostGuild spends one slot on a guild.
func HandleBoostGuild(c *fiber.Ctx) error {
	sess := usercontext.GetSession(c)
	ctx := c.UserContext()

	var req models.BoostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "guild_id is required"})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "guild_id must be a numeric id"})
	}
	guildID := req.GuildIDInt()

	// Guilds the bot has not joined yet can only be boosted by members who
	// can manage them (they are about to invite the bot).
	botInGuild, err := discordClient.IsBotInGuild(ctx, guildID)
	if err != nil {
		return err
	}
	if !botInGuild {
		canManage, err := userCanManageGuild(c, guildID)
		if err != nil {
			return err
		}
		if !canManage {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Missing manage permission for this guild"})
		}
	}

	maxBoosts, err := billingSvc.MaxBoostsPerGuild(ctx)
	if err != nil {
		return err
	}

	ok, err := billingSvc.ActivateBoost(ctx, guildID, sess.DiscordUserID, maxBoosts)
	if err != nil {
		return err
	}
	if !ok {
		// Re-query for a user-facing reason; the allocator does not
		// distinguish refusals.
		count, err := billingSvc.GuildBoostCount(ctx, guildID)
		if err == nil && count >= maxBoosts {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("Guild reached max boost limit (%d)", maxBoosts),
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No available slots"})
	}

	return c.JSON(fiber.Map{"ok": true})
}

// HandleUnboostGuild releases one of the user's boosts on a guild.
func HandleUnboostGuild(c *fiber.Ctx) error {
	sess := usercontext.GetSession(c)
	ctx := c.UserContext()

	var req models.BoostRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "guild_id is required"})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "guild_id must be a numeric id"})
	}
	guildID := req.GuildIDInt()

	ok, err := billingSvc.DeactivateBoost(ctx, guildID, sess.DiscordUserID)
	if err != nil {
		return err
	}
	if !ok {
		log.Warnf("unboost failed: no boost for user %s in guild %d", sess.DiscordUserID, guildID)
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Boost not found or not owned by you"})
	}

	status, err := billingSvc.GetUserBilling(ctx, sess.DiscordUserID)
	if err != nil {
		return err
	}
	totalSlots, usedSlots := 0, 0
	if status != nil {
		totalSlots, usedSlots = status.TotalSlots, status.UsedSlots()
	}
	return c.JSON(fiber.Map{"ok": true, "total_slots": totalSlots, "used_slots": usedSlots})
}

// HandleStripeWebhook verifies, parses and applies a payment provider event.
// Signature verification fails closed before any ledger access.
func HandleStripeWebhook(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.BodyRaw()...)
	signature := c.Get("Stripe-Signature")
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	if !billing.VerifyStripeWebhookSignature(payload, signature, secret, billing.DefaultSignatureTolerance, time.Now()) {
		log.Warn("stripe webhook rejected: invalid signature")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
	}

	event, err := billing.ParseStripeEvent(payload)
	if err != nil {
		if errors.Is(err, billing.ErrMalformedPayload) {
			log.Warnf("stripe webhook rejected: %v", err)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
		}
		return err
	}

	res, err := billingSvc.ProcessEvent(c.UserContext(), event)
	if err != nil {
		log.Errorf("processing stripe event %s failed: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_processing_error"})
	}

	resp := fiber.Map{"status": "success"}
	if res.AlreadyProcessed {
		resp["info"] = "already processed"
	}
	return c.JSON(resp)
}

// userCanManageGuild checks the user's own guild list for manage permission
// on the target guild.
func userCanManageGuild(c *fiber.Ctx, guildID int64) (bool, error) {
	sess := usercontext.GetSession(c)
	guilds, err := discordClient.FetchUserGuilds(c.UserContext(), sess.AccessToken)
	if err != nil {
		return false, err
	}
	want := strconv.FormatInt(guildID, 10)
	for _, g := range guilds {
		if g.ID == want && g.CanManage() {
			return true, nil
		}
	}
	return false, nil
}
