package store

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/efreitasn/toyexchange/internal/domain"
)

// DefaultJournalDSN keeps the journal in process memory. It is gone when
// the process exits.
const DefaultJournalDSN = ":memory:"

// Journal is an append-only record of executed trades backed by SQLite.
type Journal struct {
	db *gorm.DB
}

// OpenJournal connects to dsn and migrates the trade table. An empty dsn
// selects DefaultJournalDSN.
func OpenJournal(dsn string) (*Journal, error) {
	if dsn == "" {
		dsn = DefaultJournalDSN
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	// Each new connection to :memory: is a fresh, empty database.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&domain.Trade{}); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return &Journal{db: db}, nil
}

// Append stores t, filling in TradeID and ExecutedAt when unset.
func (j *Journal) Append(t *domain.Trade) error {
	if t.TradeID == "" {
		t.TradeID = uuid.NewString()
	}
	if t.ExecutedAt.IsZero() {
		t.ExecutedAt = time.Now().UTC()
	}
	if err := j.db.Create(t).Error; err != nil {
		return fmt.Errorf("append trade %s: %w", t.TradeID, err)
	}
	return nil
}

// Recent returns up to limit trades, newest first.
func (j *Journal) Recent(limit int) ([]domain.Trade, error) {
	var trades []domain.Trade
	err := j.db.Order("id desc").Limit(limit).Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("recent trades: %w", err)
	}
	return trades, nil
}

// ByOperator returns the operator's trades in execution order.
func (j *Journal) ByOperator(operator string) ([]domain.Trade, error) {
	var trades []domain.Trade
	err := j.db.Where("operator = ?", operator).Order("id asc").Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("trades of %s: %w", operator, err)
	}
	return trades, nil
}

// Close releases the underlying connection.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
