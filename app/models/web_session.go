package models

import "time"

// WebSession is a server-side login session. AccessToken is stored encrypted
// at rest; the sessionstore package owns encryption and decryption.
type WebSession struct {
	SID           string    `gorm:"primaryKey;type:text;column:sid" json:"sid"`
	DiscordUserID string    `gorm:"type:text;not null;index:idx_web_sessions_discord_user_id" json:"discord_user_id"`
	Username      *string   `gorm:"type:text" json:"username,omitempty"`
	AccessToken   *string   `gorm:"type:text" json:"-"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	ExpiresAt     time.Time `gorm:"not null;index:idx_web_sessions_expires_at" json:"expires_at"`
}

func (WebSession) TableName() string {
	return "web_sessions"
}

// IsExpired reports whether the session has passed its absolute expiry.
func (s *WebSession) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
