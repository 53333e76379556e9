package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server driver
	casedomain "github.com/debtflow/platform/internal/case/domain"
	"github.com/debtflow/platform/internal/shared/metrics"
	"github.com/debtflow/platform/internal/shared/types"
)

// Intake receives cases discovered in the billing ledger. The adapter
// only reads the legacy system; creation and allocation run through the
// same paths API intake uses.
type Intake interface {
	CreateCase(ctx context.Context, c *casedomain.Case) error
	Allocate(ctx context.Context, caseID types.ID) error
}

// Adapter polls the legacy billing ledger (SQL Server) for newly
// overdue invoices and feeds them into the intake pipeline.
type Adapter struct {
	db     *sql.DB
	config Config
	intake Intake

	running  bool
	mu       sync.RWMutex
	cancel   context.CancelFunc
	lastPoll time.Time
	wg       sync.WaitGroup
}

// New creates a ledger adapter
func New(cfg Config, intake Intake) *Adapter {
	return &Adapter{config: cfg, intake: intake}
}

// Start opens the database connection and begins polling
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return fmt.Errorf("adapter already running")
	}

	connStr := fmt.Sprintf("server=%s;port=%d;database=%s;user id=%s;password=%s",
		a.config.Host,
		a.config.Port,
		a.config.Database,
		a.config.User,
		a.config.Password,
	)
	if a.config.Encrypt {
		connStr += ";encrypt=true;TrustServerCertificate=true"
	}

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.db = db
	a.running = true
	a.lastPoll = time.Now().Add(-a.pollInterval())

	pollCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.wg.Add(1)
	go a.pollLoop(pollCtx)

	return nil
}

// Stop halts polling and closes the connection
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}

	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if a.db != nil {
		a.db.Close()
	}

	a.running = false
	return nil
}

// Health checks database connectivity
func (a *Adapter) Health(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.running {
		return fmt.Errorf("adapter not running")
	}
	return a.db.PingContext(ctx)
}

// IsConnected returns connection status
func (a *Adapter) IsConnected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running && a.db != nil
}

func (a *Adapter) pollInterval() time.Duration {
	if a.config.PollIntervalSec <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(a.config.PollIntervalSec) * time.Second
}

func (a *Adapter) pollLoop(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.pollInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.poll(ctx); err != nil {
				log.Printf("ERROR: ledger poll failed: %v", err)
			}
		}
	}
}

func (a *Adapter) poll(ctx context.Context) error {
	since := a.lastPoll
	now := time.Now()

	invoices, err := a.fetchOverdueInvoices(ctx, since)
	if err != nil {
		return err
	}
	a.lastPoll = now

	for _, inv := range invoices {
		if err := a.ingest(ctx, inv, now); err != nil {
			// One bad invoice never blocks the rest of the batch.
			log.Printf("ERROR: failed to ingest invoice %s: %v", inv.InvoiceNumber, err)
		}
	}
	return nil
}

// ingest turns one ledger invoice into a pending case and hands it to
// the allocation pipeline.
func (a *Adapter) ingest(ctx context.Context, inv Invoice, now time.Time) error {
	c, err := casedomain.NewCase(
		types.NewMoney(inv.Amount, inv.Currency),
		types.Geography{
			Country:    inv.Country,
			State:      inv.State,
			City:       inv.City,
			PostalCode: inv.PostalCode,
		},
		inv.Industry, inv.Segment, inv.DaysPastDue(now),
	)
	if err != nil {
		return fmt.Errorf("invalid invoice data: %w", err)
	}

	if err := a.intake.CreateCase(ctx, c); err != nil {
		return err
	}
	metrics.RecordCaseCreated(c.RegionCode, "ledger")

	if err := a.intake.Allocate(ctx, c.ID); err != nil {
		// The case stands; allocation can be retried by the pipeline.
		log.Printf("WARN: allocation deferred for ledger case %s: %v", c.Reference, err)
	}
	return nil
}

func (a *Adapter) fetchOverdueInvoices(ctx context.Context, since time.Time) ([]Invoice, error) {
	if !a.IsConnected() {
		return nil, fmt.Errorf("adapter not connected")
	}

	query := fmt.Sprintf(`
		SELECT
			InvoiceNumber,
			DebtorName,
			AmountMinorUnits,
			Currency,
			Country,
			State,
			City,
			PostalCode,
			Industry,
			Segment,
			DueDate,
			LastModified
		FROM %s
		WHERE DueDate < GETUTCDATE()
		  AND CollectionStatus = 'open'
		  AND LastModified > @since
		ORDER BY LastModified
	`, a.config.InvoiceTable)

	rows, err := a.db.QueryContext(ctx, query, sql.Named("since", since))
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		var inv Invoice
		var state, city, postal, industry, segment sql.NullString

		err := rows.Scan(
			&inv.InvoiceNumber,
			&inv.DebtorName,
			&inv.Amount,
			&inv.Currency,
			&inv.Country,
			&state,
			&city,
			&postal,
			&industry,
			&segment,
			&inv.DueDate,
			&inv.LastModified,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}

		inv.State = state.String
		inv.City = city.String
		inv.PostalCode = postal.String
		inv.Industry = industry.String
		inv.Segment = segment.String
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}
