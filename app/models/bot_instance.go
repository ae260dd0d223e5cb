package models

// BotInstance describes one deployed bot process. The number of active
// instances defines the per-guild boost cap: each additional boost unlocks
// one more instance for that guild.
type BotInstance struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	ClientID string `gorm:"type:text;not null" json:"client_id"`
	BotName  string `gorm:"type:text;not null" json:"bot_name"`
	IsActive bool   `gorm:"not null;default:true" json:"is_active"`
}

func (BotInstance) TableName() string {
	return "bot_instances"
}
