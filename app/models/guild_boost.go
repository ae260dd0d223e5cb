package models

import "time"

// GuildBoost records one purchased slot applied to one guild. Multiple boosts
// may exist per guild (up to the active bot instance count) and a user may
// stack more than one boost on the same guild.
type GuildBoost struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GuildID   int64     `gorm:"not null;index:idx_guild_boosts_guild_id" json:"guild_id"`
	UserID    string    `gorm:"type:text;not null;index:idx_guild_boosts_user_id" json:"user_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (GuildBoost) TableName() string {
	return "guild_boosts"
}
