package models

// GuildSettings stores per-guild TTS configuration as a JSONB document.
// Unknown keys are preserved so older bot versions can roll forward safely.
type GuildSettings struct {
	GuildID  int64          `gorm:"primaryKey" json:"guild_id"`
	Settings map[string]any `gorm:"type:jsonb;serializer:json;not null" json:"settings"`
}

func (GuildSettings) TableName() string {
	return "guild_settings"
}

// DefaultGuildSettings returns the settings applied to a guild that has never
// been configured. Kept in sync with the bot's reader defaults.
func DefaultGuildSettings() map[string]any {
	return map[string]any{
		"auto_join":        false,
		"auto_join_config": map[string]any{},
		"max_chars":        50,
		"read_vc_status":   false,
		"read_mention":     true,
		"read_emoji":       true,
		"add_suffix":       false,
		"read_romaji":      false,
		"read_attachments": true,
		"skip_code_blocks": true,
		"skip_urls":        true,
	}
}

// MergedSettings overlays stored values onto the defaults so callers always
// see a complete settings document.
func (g *GuildSettings) MergedSettings() map[string]any {
	merged := DefaultGuildSettings()
	for k, v := range g.Settings {
		merged[k] = v
	}
	return merged
}
