package models

import (
	"strconv"

	"github.com/go-playground/validator/v10"
)

const (
	MaxDictWordLength    = 50
	MaxDictReadingLength = 100
	FreeMaxChars         = 50
	PremiumMaxChars      = 200
)

var validate = validator.New()

// BoostRequest is the body of boost/unboost calls. Guild ids are Discord
// snowflakes and arrive as decimal strings.
type BoostRequest struct {
	GuildID string `json:"guild_id" validate:"required,number"`
}

func (r *BoostRequest) Validate() error {
	return validate.Struct(r)
}

// GuildIDInt parses the snowflake. Validate must have passed first.
func (r *BoostRequest) GuildIDInt() int64 {
	id, _ := strconv.ParseInt(r.GuildID, 10, 64)
	return id
}

// GuildSettingsUpdate is a partial settings update; nil fields are left
// untouched.
type GuildSettingsUpdate struct {
	AutoJoin        *bool          `json:"auto_join"`
	AutoJoinConfig  map[string]any `json:"auto_join_config"`
	MaxChars        *int           `json:"max_chars" validate:"omitempty,gte=1,lte=200"`
	ReadVCStatus    *bool          `json:"read_vc_status"`
	ReadMention     *bool          `json:"read_mention"`
	ReadEmoji       *bool          `json:"read_emoji"`
	AddSuffix       *bool          `json:"add_suffix"`
	ReadRomaji      *bool          `json:"read_romaji"`
	ReadAttachments *bool          `json:"read_attachments"`
	SkipCodeBlocks  *bool          `json:"skip_code_blocks"`
	SkipURLs        *bool          `json:"skip_urls"`
}

func (u *GuildSettingsUpdate) Validate() error {
	return validate.Struct(u)
}

// ToUpdateMap converts the request to a settings patch, excluding nil fields.
func (u *GuildSettingsUpdate) ToUpdateMap() map[string]any {
	patch := map[string]any{}
	if u.AutoJoin != nil {
		patch["auto_join"] = *u.AutoJoin
	}
	if u.AutoJoinConfig != nil {
		patch["auto_join_config"] = u.AutoJoinConfig
	}
	if u.MaxChars != nil {
		patch["max_chars"] = *u.MaxChars
	}
	if u.ReadVCStatus != nil {
		patch["read_vc_status"] = *u.ReadVCStatus
	}
	if u.ReadMention != nil {
		patch["read_mention"] = *u.ReadMention
	}
	if u.ReadEmoji != nil {
		patch["read_emoji"] = *u.ReadEmoji
	}
	if u.AddSuffix != nil {
		patch["add_suffix"] = *u.AddSuffix
	}
	if u.ReadRomaji != nil {
		patch["read_romaji"] = *u.ReadRomaji
	}
	if u.ReadAttachments != nil {
		patch["read_attachments"] = *u.ReadAttachments
	}
	if u.SkipCodeBlocks != nil {
		patch["skip_code_blocks"] = *u.SkipCodeBlocks
	}
	if u.SkipURLs != nil {
		patch["skip_urls"] = *u.SkipURLs
	}
	return patch
}

// DictEntry is a single dictionary upsert.
type DictEntry struct {
	Word    string `json:"word" validate:"required,min=1,max=50"`
	Reading string `json:"reading" validate:"required,min=1,max=100"`
}

func (e *DictEntry) Validate() error {
	return validate.Struct(e)
}
