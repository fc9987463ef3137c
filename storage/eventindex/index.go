// Package eventindex keeps a queryable SQL copy of committed ledger events.
// The LevelDB ledger stays authoritative; the index only serves history
// lookups by holder, asset and event type.
package eventindex

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"nftstake/core/types"
)

const (
	DefaultQueryLimit = 100
	MaxQueryLimit     = 1000
)

// Event is one indexed ledger event.
type Event struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	TxHash     string `gorm:"size:66;index"`
	TxType     string `gorm:"size:32"`
	Type       string `gorm:"size:64;index"`
	Holder     string `gorm:"size:64;index"`
	Asset      string `gorm:"size:64;index"`
	Attributes string `gorm:"type:text"`
	Timestamp  int64  `gorm:"index"`
	CreatedAt  time.Time
}

// TableName pins the table name across drivers.
func (Event) TableName() string { return "staking_events" }

// Attrs decodes the stored attribute map.
func (e Event) Attrs() (map[string]string, error) {
	attrs := make(map[string]string)
	if e.Attributes == "" {
		return attrs, nil
	}
	if err := json.Unmarshal([]byte(e.Attributes), &attrs); err != nil {
		return nil, fmt.Errorf("eventindex: decode attributes of event %d: %w", e.ID, err)
	}
	return attrs, nil
}

// Filter narrows a Query. Zero fields match everything.
type Filter struct {
	Holder string
	Asset  string
	Type   string
	// After returns only events with an ID greater than it.
	After uint64
	Limit int
}

// Index persists committed receipts through gorm.
type Index struct {
	db *gorm.DB
}

// Open connects to driver ("sqlite" or "postgres") at dsn and migrates the
// schema.
func Open(driver, dsn string) (*Index, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("eventindex: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("eventindex: open %s: %w", driver, err)
	}
	return New(db)
}

// New wraps an open gorm handle and migrates the schema.
func New(db *gorm.DB) (*Index, error) {
	if db == nil {
		return nil, fmt.Errorf("eventindex: database required")
	}
	if err := db.AutoMigrate(&Event{}); err != nil {
		return nil, fmt.Errorf("eventindex: migrate: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying connection pool.
func (i *Index) Close() error {
	if i == nil || i.db == nil {
		return nil
	}
	sqlDB, err := i.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IndexReceipt stores the events of a successful receipt in one insert.
// Failed receipts carry no events and are skipped.
func (i *Index) IndexReceipt(ctx context.Context, receipt *types.Receipt) error {
	if receipt == nil || receipt.Status != types.ReceiptSuccess || len(receipt.Events) == 0 {
		return nil
	}
	txHash := "0x" + hex.EncodeToString(receipt.TxHash)
	rows := make([]Event, 0, len(receipt.Events))
	for _, evt := range receipt.Events {
		attrs, err := json.Marshal(evt.Attributes)
		if err != nil {
			return fmt.Errorf("eventindex: encode attributes: %w", err)
		}
		rows = append(rows, Event{
			TxHash:     txHash,
			TxType:     receipt.Type.String(),
			Type:       evt.Type,
			Holder:     evt.Attributes["holder"],
			Asset:      evt.Attributes["asset"],
			Attributes: string(attrs),
			Timestamp:  receipt.Timestamp,
		})
	}
	if err := i.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("eventindex: insert: %w", err)
	}
	return nil
}

// Query returns matching events in commit order.
func (i *Index) Query(ctx context.Context, filter Filter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}
	q := i.db.WithContext(ctx).Model(&Event{}).Where("id > ?", filter.After)
	if filter.Holder != "" {
		q = q.Where("holder = ?", filter.Holder)
	}
	if filter.Asset != "" {
		q = q.Where("asset = ?", filter.Asset)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	var out []Event
	if err := q.Order("id ASC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("eventindex: query: %w", err)
	}
	return out, nil
}
