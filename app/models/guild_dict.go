package models

// GuildDict holds the per-guild pronunciation dictionary (word -> reading).
type GuildDict struct {
	GuildID int64             `gorm:"primaryKey" json:"guild_id"`
	Dict    map[string]string `gorm:"type:jsonb;serializer:json;not null;column:dict" json:"dict"`
}

func (GuildDict) TableName() string {
	return "dict"
}
