package domain

import "time"

// Side identifies the direction of an executed trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Trade is a journal entry for one executed buy or sell intent.
// Price is the unit price before the policy ran; Amount is the cash that
// changed hands (Executed × Price).
type Trade struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	TradeID    string    `gorm:"uniqueIndex" json:"trade_id"`
	Operator   string    `gorm:"index" json:"operator"`
	Side       Side      `json:"side"`
	Exchange   string    `gorm:"index" json:"exchange"`
	Company    string    `json:"company"`
	Requested  int64     `json:"requested"`
	Executed   int64     `json:"executed"`
	Price      int64     `json:"price"`
	Amount     int64     `json:"amount"`
	ExecutedAt time.Time `json:"executed_at"`
}
