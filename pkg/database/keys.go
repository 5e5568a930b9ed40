package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultRateLimit is the daily request allowance of a new key.
const DefaultRateLimit = 10000

// ErrKeyRevoked is returned for a key an admin has revoked.
var ErrKeyRevoked = errors.New("api key revoked")

// UsageDate formats t as the usage bucket key. Buckets are UTC days.
func UsageDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// CreateKey inserts a new API key record.
func (s *Store) CreateKey(ctx context.Context, key *APIKey) error {
	if key.RateLimit == 0 {
		key.RateLimit = DefaultRateLimit
	}
	return s.db.WithContext(ctx).Create(key).Error
}

// TouchKey fetches the record for a verified key, creating it on first use,
// and stamps LastUsed. Revoked keys stay on record and yield ErrKeyRevoked.
func (s *Store) TouchKey(ctx context.Context, key, name string) (*APIKey, error) {
	db := s.db.WithContext(ctx)
	var apiKey APIKey
	err := db.Unscoped().Where(APIKey{Key: key}).Attrs(APIKey{
		Name:       name,
		KeyPreview: Preview(key),
		RateLimit:  DefaultRateLimit,
	}).FirstOrCreate(&apiKey).Error
	if err != nil {
		return nil, err
	}
	if apiKey.DeletedAt.Valid {
		return nil, fmt.Errorf("key %d: %w", apiKey.ID, ErrKeyRevoked)
	}
	now := time.Now()
	apiKey.LastUsed = &now
	if err := db.Model(&apiKey).Update("last_used", now).Error; err != nil {
		return nil, err
	}
	return &apiKey, nil
}

// Preview masks a key for display, e.g. "adm...3f2a".
func Preview(key string) string {
	if len(key) > 8 {
		return key[:3] + "..." + key[len(key)-4:]
	}
	return "****"
}

// ListKeys returns every key, oldest first.
func (s *Store) ListKeys(ctx context.Context) ([]APIKey, error) {
	keys := []APIKey{}
	err := s.db.WithContext(ctx).Order("id").Find(&keys).Error
	return keys, err
}

// RevokeKey soft-deletes a key. The record and its usage history are kept so
// the signature cannot be re-registered on its next request.
func (s *Store) RevokeKey(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&APIKey{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("key %d: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateKeyLimit sets a key's daily request allowance.
func (s *Store) UpdateKeyLimit(ctx context.Context, id uint, limit int) error {
	res := s.db.WithContext(ctx).Model(&APIKey{}).Where("id = ?", id).Update("rate_limit", limit)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("key %d: %w", id, ErrNotFound)
	}
	return nil
}

// RecordUsage bumps today's counters for a key with a single upsert.
func (s *Store) RecordUsage(ctx context.Context, keyID uint, events, leaders int) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count": gorm.Expr("request_count + ?", 1),
			"total_events":  gorm.Expr("total_events + ?", events),
			"total_leaders": gorm.Expr("total_leaders + ?", leaders),
		}),
	}).Create(&APIUsage{
		KeyID:        keyID,
		Date:         UsageDate(time.Now()),
		RequestCount: 1,
		TotalEvents:  events,
		TotalLeaders: leaders,
	}).Error
}

// RequestsOn returns a key's request count for one usage date.
func (s *Store) RequestsOn(ctx context.Context, keyID uint, date string) (int, error) {
	var u APIUsage
	err := s.db.WithContext(ctx).Where("key_id = ? AND date = ?", keyID, date).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return u.RequestCount, nil
}

// Usage returns up to limit days of usage for a key, newest first.
func (s *Store) Usage(ctx context.Context, keyID uint, limit int) ([]APIUsage, error) {
	usage := []APIUsage{}
	err := s.db.WithContext(ctx).Where("key_id = ?", keyID).Order("date desc").Limit(limit).Find(&usage).Error
	return usage, err
}

// FindUser loads an admin by username.
func (s *Store) FindUser(ctx context.Context, username string) (*MasterUser, error) {
	var user MasterUser
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
