package controllers

import (
	"github.com/voxaria/voxpremium/internal/pkg/billing"
	"github.com/voxaria/voxpremium/internal/pkg/discord"
	"github.com/voxaria/voxpremium/internal/pkg/guilds"
	"github.com/voxaria/voxpremium/internal/pkg/sessionstore"
)

// Shared collaborators, wired once at startup by the router setup.
var (
	billingSvc    *billing.Service
	guildsSvc     *guilds.Service
	sessions      *sessionstore.Store
	discordClient *discord.Client
	stripeClient  *billing.StripeClient
)

// Setup injects the service singletons the handlers operate on.
func Setup(svc *billing.Service, gs *guilds.Service, store *sessionstore.Store, dc *discord.Client, sc *billing.StripeClient) {
	billingSvc = svc
	guildsSvc = gs
	sessions = store
	discordClient = dc
	stripeClient = sc
}
