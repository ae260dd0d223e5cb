package constants

// Static route constants
const (
	APIRoute           = "/api"
	AuthRoute          = "/auth/:provider"
	AuthCallbackRoute  = "/auth/:provider/callback"
	StripeWebhookRoute = "/api/billing/webhook"
)
