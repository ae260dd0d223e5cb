package discord

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/voxaria/voxpremium/internal/pkg/cache"
	"github.com/voxaria/voxpremium/internal/pkg/env"
)

const defaultDiscordAPIBaseURL = "https://discord.com/api/v10"

// Discord permission bits the dashboard cares about.
const (
	PermAdministrator int64 = 0x8
	PermManageGuild   int64 = 0x20
)

// Cache TTLs. These lists are read-mostly and only feed UI decisions; the
// ledger re-checks caps inside its own transactions.
const (
	userGuildsCacheTTL = 30 * time.Second
	botGuildsCacheTTL  = 60 * time.Second
)

// Guild is the subset of the Discord guild object the dashboard needs.
type Guild struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Owner       bool   `json:"owner"`
	Permissions string `json:"permissions"`
}

// CanManage reports whether the member may manage the guild (owner, or
// MANAGE_GUILD/ADMINISTRATOR permission).
func (g Guild) CanManage() bool {
	if g.Owner {
		return true
	}
	perms, err := strconv.ParseInt(g.Permissions, 10, 64)
	if err != nil {
		return false
	}
	return perms&PermManageGuild == PermManageGuild || perms&PermAdministrator == PermAdministrator
}

// Client talks to the Discord REST API for guild and membership lookups.
type Client struct {
	BotToken   string
	APIBaseURL string
	HTTPClient *http.Client

	cache *cache.Cache
}

// NewClientFromEnv builds a client; c may be nil to disable caching.
func NewClientFromEnv(c *cache.Cache) *Client {
	return &Client{
		BotToken:   strings.TrimSpace(env.GetEnv("DISCORD_BOT_TOKEN", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("DISCORD_API_BASE_URL", defaultDiscordAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		cache: c,
	}
}

// FetchUserGuilds lists the guilds the logged-in user belongs to, cached
// briefly per access token.
func (c *Client) FetchUserGuilds(ctx context.Context, accessToken string) ([]Guild, error) {
	cacheKey := "user_guilds:" + tokenFingerprint(accessToken)
	if c.cache != nil {
		var cached []Guild
		if err := c.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	var guilds []Guild
	if err := c.getJSON(ctx, "/users/@me/guilds", "Bearer "+accessToken, &guilds); err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.SetJSON(ctx, cacheKey, guilds, userGuildsCacheTTL); err != nil {
			log.Warnf("user guild cache write failed: %v", err)
		}
	}
	return guilds, nil
}

// FetchBotGuildIDs lists the guild ids the bot itself has joined, cached
// briefly since invites are infrequent.
func (c *Client) FetchBotGuildIDs(ctx context.Context) (map[string]bool, error) {
	if c.BotToken == "" {
		return nil, errors.New("DISCORD_BOT_TOKEN is not configured")
	}

	const cacheKey = "bot_guilds"
	if c.cache != nil {
		var cached []string
		if err := c.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
			return toIDSet(cached), nil
		}
	}

	var guilds []Guild
	if err := c.getJSON(ctx, "/users/@me/guilds", "Bot "+c.BotToken, &guilds); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(guilds))
	for _, g := range guilds {
		ids = append(ids, g.ID)
	}

	if c.cache != nil {
		if err := c.cache.SetJSON(ctx, cacheKey, ids, botGuildsCacheTTL); err != nil {
			log.Warnf("bot guild cache write failed: %v", err)
		}
	}
	return toIDSet(ids), nil
}

// IsBotInGuild reports whether any bot instance has joined the guild.
func (c *Client) IsBotInGuild(ctx context.Context, guildID int64) (bool, error) {
	ids, err := c.FetchBotGuildIDs(ctx)
	if err != nil {
		return false, err
	}
	return ids[strconv.FormatInt(guildID, 10)], nil
}

func (c *Client) getJSON(ctx context.Context, path, authorization string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIBaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", authorization)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("discord request %s failed with status %d", path, resp.StatusCode)
	}
	return json.Unmarshal(body, dest)
}

func tokenFingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}

func toIDSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
