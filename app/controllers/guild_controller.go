package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/voxaria/voxpremium/app/models"
	"github.com/voxaria/voxpremium/internal/pkg/guilds"
	"github.com/voxaria/voxpremium/internal/pkg/usercontext"
)

// HandleListGuilds returns the guilds the user can manage, annotated with
// whether the bot has joined them.
func HandleListGuilds(c *fiber.Ctx) error {
	sess := usercontext.GetSession(c)
	ctx := c.UserContext()

	userGuilds, err := discordClient.FetchUserGuilds(ctx, sess.AccessToken)
	if err != nil {
		return err
	}
	botGuilds, err := discordClient.FetchBotGuildIDs(ctx)
	if err != nil {
		log.Warnf("fetching bot guilds failed: %v", err)
		botGuilds = map[string]bool{}
	}

	manageable := make([]fiber.Map, 0, len(userGuilds))
	for _, g := range userGuilds {
		if !g.CanManage() {
			continue
		}
		manageable = append(manageable, fiber.Map{
			"id":           g.ID,
			"name":         g.Name,
			"icon":         g.Icon,
			"permissions":  g.Permissions,
			"bot_in_guild": botGuilds[g.ID],
		})
	}
	return c.JSON(manageable)
}

// HandleGetGuildSettings returns a guild's settings. Unconfigured guilds get
// the defaults when the bot is present, otherwise an empty document.
func HandleGetGuildSettings(c *fiber.Ctx) error {
	guildID, ok := parseGuildParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid guild id"})
	}
	if err := ensureManageGuild(c, guildID); err != nil {
		return err
	}
	ctx := c.UserContext()

	settings, err := guildsSvc.GetSettings(ctx, guildID)
	if err != nil {
		return err
	}
	if settings != nil {
		return c.JSON(settings)
	}

	botInGuild, err := discordClient.IsBotInGuild(ctx, guildID)
	if err != nil {
		return err
	}
	if botInGuild {
		return c.JSON(models.DefaultGuildSettings())
	}
	return c.JSON(fiber.Map{})
}

// HandleUpdateGuildSettings applies a partial settings update; premium-only
// values are clamped when the guild holds no boost.
func HandleUpdateGuildSettings(c *fiber.Ctx) error {
	guildID, ok := parseGuildParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid guild id"})
	}
	if err := ensureManageGuild(c, guildID); err != nil {
		return err
	}
	ctx := c.UserContext()

	var req models.GuildSettingsUpdate
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid settings payload"})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	boosted, err := billingSvc.IsGuildBoosted(ctx, guildID)
	if err != nil {
		return err
	}
	if err := guildsSvc.UpdateSettings(ctx, guildID, req.ToUpdateMap(), boosted); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleGetGuildDict lists the guild dictionary as word/reading pairs.
func HandleGetGuildDict(c *fiber.Ctx) error {
	guildID, ok := parseGuildParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid guild id"})
	}
	if err := ensureManageGuild(c, guildID); err != nil {
		return err
	}

	dict, err := guildsSvc.GetDict(c.UserContext(), guildID)
	if err != nil {
		return err
	}
	entries := make([]models.DictEntry, 0, len(dict))
	for word, reading := range dict {
		entries = append(entries, models.DictEntry{Word: word, Reading: reading})
	}
	return c.JSON(entries)
}

// HandleAddGuildDict upserts a dictionary word, premium-gating the size.
func HandleAddGuildDict(c *fiber.Ctx) error {
	guildID, ok := parseGuildParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid guild id"})
	}
	if err := ensureManageGuild(c, guildID); err != nil {
		return err
	}
	ctx := c.UserContext()

	var req models.DictEntry
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "word and reading are required"})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	boosted, err := billingSvc.IsGuildBoosted(ctx, guildID)
	if err != nil {
		return err
	}
	if err := guildsSvc.AddDictEntry(ctx, guildID, req.Word, req.Reading, boosted); err != nil {
		if errors.Is(err, guilds.ErrDictLimitReached) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Dictionary limit reached. Upgrade to premium for more slots.",
			})
		}
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

// HandleDeleteGuildDict removes a dictionary word.
func HandleDeleteGuildDict(c *fiber.Ctx) error {
	guildID, ok := parseGuildParam(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid guild id"})
	}
	if err := ensureManageGuild(c, guildID); err != nil {
		return err
	}

	word := c.Params("word")
	if word == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "word is required"})
	}
	if err := guildsSvc.DeleteDictEntry(c.UserContext(), guildID, word); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"ok": true})
}

func parseGuildParam(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("guild_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ensureManageGuild returns a 403 error when the user cannot manage the guild,
// so handlers can bail with a plain error check.
func ensureManageGuild(c *fiber.Ctx, guildID int64) error {
	canManage, err := userCanManageGuild(c, guildID)
	if err != nil {
		return err
	}
	if !canManage {
		return fiber.NewError(fiber.StatusForbidden, "Missing manage permission for this guild")
	}
	return nil
}
