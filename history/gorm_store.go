package history

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/quailyquaily/keen/db/models"
	"github.com/quailyquaily/keen/internal/strutil"
	"gorm.io/gorm"
)

// Byte caps applied to free-text columns before insert.
const (
	maxTitleBytes = 512
	maxErrorBytes = 2048
)

type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) Record(ctx context.Context, e Entry) error {
	if s == nil || s.DB == nil {
		return nil
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.FinishedAt.IsZero() {
		e.FinishedAt = now
	}
	if strings.TrimSpace(e.EventID) == "" {
		e.EventID = newEventID()
	}
	row := entryToModel(e)
	return s.DB.WithContext(ctx).Create(&row).Error
}

func (s *GormStore) List(ctx context.Context, opt ListOptions) ([]Entry, error) {
	if s == nil || s.DB == nil {
		return nil, nil
	}
	limit := opt.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}

	q := s.DB.WithContext(ctx).Model(&models.Delivery{}).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit)
	if st := strings.TrimSpace(string(opt.Status)); st != "" {
		q = q.Where("status = ?", st)
	}

	var rows []models.Delivery
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, modelToEntry(r))
	}
	return out, nil
}

func entryToModel(e Entry) models.Delivery {
	return models.Delivery{
		EventID:        e.EventID,
		Action:         e.Action,
		URLRedacted:    e.URLRedacted,
		Host:           e.Host,
		Title:          strutil.TruncateUTF8(e.Title, maxTitleBytes),
		Status:         string(e.Status),
		Stage:          e.Stage,
		Error:          strutil.TruncateUTF8(e.Error, maxErrorBytes),
		HTMLBytes:      e.HTMLBytes,
		ExtractedChars: e.ExtractedChars,
		CreatedAt:      e.CreatedAt.UnixMilli(),
		FinishedAt:     e.FinishedAt.UnixMilli(),
	}
}

func modelToEntry(r models.Delivery) Entry {
	return Entry{
		EventID:        r.EventID,
		Action:         r.Action,
		URLRedacted:    r.URLRedacted,
		Host:           r.Host,
		Title:          r.Title,
		Status:         Status(r.Status),
		Stage:          r.Stage,
		Error:          r.Error,
		HTMLBytes:      r.HTMLBytes,
		ExtractedChars: r.ExtractedChars,
		CreatedAt:      time.UnixMilli(r.CreatedAt).UTC(),
		FinishedAt:     time.UnixMilli(r.FinishedAt).UTC(),
	}
}

func newEventID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return "dlv_" + hex.EncodeToString(b)
}
