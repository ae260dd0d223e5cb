package sessionstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/voxaria/voxpremium/app/models"
	"github.com/voxaria/voxpremium/internal/pkg/crypto"
)

// Session is a decrypted, validated login session as handed to callers. The
// access token is already plaintext here and must never be persisted again.
type Session struct {
	SID           string
	DiscordUserID string
	Username      string
	AccessToken   string
	ExpiresAt     time.Time
}

// Store persists web sessions with the Discord access token encrypted at
// rest. Expired or undecryptable rows are treated as absent and removed.
type Store struct {
	db     *gorm.DB
	cipher *crypto.TokenCipher

	// now is swappable for expiry tests.
	now func() time.Time
	// deleteAsync runs background deletions; tests replace it to run inline.
	deleteAsync func(sid string)
}

func New(db *gorm.DB, cipher *crypto.TokenCipher) *Store {
	s := &Store{db: db, cipher: cipher, now: time.Now}
	s.deleteAsync = func(sid string) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.Delete(ctx, sid); err != nil {
				log.Errorf("failed to delete session %s...: %v", shortSID(sid), err)
			}
		}()
	}
	return s
}

// Create persists a new session and returns its id: 32 bytes of entropy,
// hex-encoded.
func (s *Store) Create(ctx context.Context, discordUserID, username, accessToken string, ttl time.Duration) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	sid := hex.EncodeToString(buf)

	record := &models.WebSession{
		SID:           sid,
		DiscordUserID: discordUserID,
		ExpiresAt:     s.now().Add(ttl),
	}
	if username != "" {
		record.Username = &username
	}
	if accessToken != "" {
		sealed, err := s.cipher.Encrypt(accessToken)
		if err != nil {
			return "", fmt.Errorf("encrypting session token: %w", err)
		}
		record.AccessToken = &sealed
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return "", err
	}
	return sid, nil
}

// Get resolves a session id. Missing, expired and undecryptable sessions all
// come back as (nil, nil); the latter two are deleted off the request path so
// the read never waits on the cleanup.
func (s *Store) Get(ctx context.Context, sid string) (*Session, error) {
	var record models.WebSession
	err := s.db.WithContext(ctx).First(&record, "sid = ?", sid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if record.IsExpired(s.now()) {
		s.deleteAsync(sid)
		return nil, nil
	}

	session := &Session{
		SID:           record.SID,
		DiscordUserID: record.DiscordUserID,
		ExpiresAt:     record.ExpiresAt,
	}
	if record.Username != nil {
		session.Username = *record.Username
	}
	if record.AccessToken != nil {
		token, err := s.cipher.Decrypt(*record.AccessToken)
		if err != nil {
			// Key rotation or corruption. Indistinguishable from "not logged
			// in" for the caller; force a fresh login.
			log.Warnf("session %s... invalidated due to decryption failure", shortSID(sid))
			s.deleteAsync(sid)
			return nil, nil
		}
		session.AccessToken = token
	}

	return session, nil
}

// Delete removes a session unconditionally (logout).
func (s *Store) Delete(ctx context.Context, sid string) error {
	return s.db.WithContext(ctx).Delete(&models.WebSession{}, "sid = ?", sid).Error
}

// Cleanup batch-deletes up to limit expired sessions, oldest expiry first.
// Run by the maintenance worker, not inline with requests.
func (s *Store) Cleanup(ctx context.Context, limit int) (int64, error) {
	res := s.db.WithContext(ctx).Exec(`
		DELETE FROM web_sessions
		WHERE sid IN (
			SELECT sid FROM web_sessions
			WHERE expires_at <= now()
			ORDER BY expires_at ASC
			LIMIT ?
		)`, limit)
	if res.Error != nil {
		return 0, fmt.Errorf("cleaning up expired sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func shortSID(sid string) string {
	if len(sid) > 8 {
		return sid[:8]
	}
	return sid
}
