package ledger

import (
	"time"

	"github.com/debtflow/platform/internal/shared/config"
)

// Invoice is one overdue invoice row read from the billing ledger
type Invoice struct {
	InvoiceNumber string
	DebtorName    string
	Amount        int64
	Currency      string
	Country       string
	State         string
	City          string
	PostalCode    string
	Industry      string
	Segment       string
	DueDate       time.Time
	LastModified  time.Time
}

// DaysPastDue computes the age of the invoice at a reference time
func (i Invoice) DaysPastDue(now time.Time) int {
	if !now.After(i.DueDate) {
		return 0
	}
	return int(now.Sub(i.DueDate).Hours() / 24)
}

// Config holds ledger adapter configuration
type Config struct {
	config.LedgerConfig

	EventBufferSize int
}

// DefaultConfig returns defaults on top of the loaded settings
func DefaultConfig(cfg config.LedgerConfig) Config {
	return Config{
		LedgerConfig:    cfg,
		EventBufferSize: 100,
	}
}
