package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Summary is the dashboard KPI payload for a date range.
type Summary struct {
	From                  time.Time       `json:"from"`
	To                    time.Time       `json:"to"`
	SalesTotal            decimal.Decimal `json:"sales_total"`
	SalesCount            int             `json:"sales_count"`
	PurchasesTotal        decimal.Decimal `json:"purchases_total"`
	PurchasesCount        int             `json:"purchases_count"`
	OutstandingReceivable decimal.Decimal `json:"outstanding_receivable"`
	OutstandingPayable    decimal.Decimal `json:"outstanding_payable"`
	RepairQueue           map[string]int  `json:"repair_queue"`
	LowStockCount         int             `json:"low_stock_count"`
	// SalesTotalFormatted is pre-formatted for the dashboard header.
	SalesTotalFormatted string    `json:"sales_total_display"`
	GeneratedAt         time.Time `json:"generated_at"`
}

// AgingBucket is one 30-day slice of unpaid documents.
type AgingBucket struct {
	Label  string          `json:"label"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Aging is the full aging report for one side of the ledger.
type Aging struct {
	Side        string          `json:"side"`
	Buckets     []AgingBucket   `json:"buckets"`
	Total       decimal.Decimal `json:"total"`
	GeneratedAt time.Time       `json:"generated_at"`
}

const (
	// SideReceivable ages unpaid sales; SidePayable ages unpaid purchases.
	SideReceivable = "receivable"
	SidePayable    = "payable"

	lowStockThreshold = 3
)

// Service builds dashboard reports behind a versioned cache. Concurrent
// requests for the same key collapse into one build.
type Service struct {
	repo    Repository
	cache   *Cache
	group   singleflight.Group
	printer *message.Printer
}

// NewService builds a Service instance. cache may be nil, which disables
// caching but keeps the build path identical.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		printer: message.NewPrinter(language.English),
	}
}

// Summary builds the KPI summary for [from, to).
func (s *Service) Summary(ctx context.Context, from, to time.Time) (Summary, error) {
	if !to.After(from) {
		return Summary{}, fmt.Errorf("reports: empty date range")
	}
	key, err := s.cache.BuildKey(ctx, "reports", "summary", from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return Summary{}, err
	}

	var out Summary
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		result, err, _ := s.build(ctx, key, func(ctx context.Context) (any, error) {
			return s.buildSummary(ctx, from, to)
		})
		return result, err
	})
	if err != nil {
		return Summary{}, err
	}
	out.SalesTotalFormatted = s.formatAmount(out.SalesTotal)
	return out, nil
}

// Aging builds the aging report for one side.
func (s *Service) Aging(ctx context.Context, side string) (Aging, error) {
	var table string
	switch side {
	case SideReceivable:
		table = "sales"
	case SidePayable:
		table = "purchases"
	default:
		return Aging{}, fmt.Errorf("reports: unknown aging side %q", side)
	}

	key, err := s.cache.BuildKey(ctx, "reports", "aging", side)
	if err != nil {
		return Aging{}, err
	}

	var out Aging
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		result, err, _ := s.build(ctx, key, func(ctx context.Context) (any, error) {
			buckets, err := s.repo.Aging(ctx, table)
			if err != nil {
				return nil, err
			}
			total := decimal.Zero
			for _, bucket := range buckets {
				total = total.Add(bucket.Amount)
			}
			return Aging{Side: side, Buckets: buckets, Total: total, GeneratedAt: time.Now().UTC()}, nil
		})
		return result, err
	})
	if err != nil {
		return Aging{}, err
	}
	return out, nil
}

// Warmup pre-builds the default dashboard payloads. Called from the
// background worker so the first morning request hits a warm cache.
func (s *Service) Warmup(ctx context.Context) error {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	if _, err := s.Summary(ctx, from, now); err != nil {
		return fmt.Errorf("reports: warm summary: %w", err)
	}
	for _, side := range []string{SideReceivable, SidePayable} {
		if _, err := s.Aging(ctx, side); err != nil {
			return fmt.Errorf("reports: warm aging %s: %w", side, err)
		}
	}
	return nil
}

// Bump invalidates cached reports after a mutation.
func (s *Service) Bump(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) buildSummary(ctx context.Context, from, to time.Time) (Summary, error) {
	salesTotal, salesCount, err := s.repo.DocumentTotals(ctx, "sales", from, to)
	if err != nil {
		return Summary{}, err
	}
	purchasesTotal, purchasesCount, err := s.repo.DocumentTotals(ctx, "purchases", from, to)
	if err != nil {
		return Summary{}, err
	}
	receivable, err := s.repo.Outstanding(ctx, []string{"sales", "customers"})
	if err != nil {
		return Summary{}, err
	}
	payable, err := s.repo.Outstanding(ctx, []string{"purchases", "suppliers"})
	if err != nil {
		return Summary{}, err
	}
	repairQueue, err := s.repo.RepairCounts(ctx)
	if err != nil {
		return Summary{}, err
	}
	lowStock, err := s.repo.LowStockCount(ctx, lowStockThreshold)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		From:                  from,
		To:                    to,
		SalesTotal:            salesTotal,
		SalesCount:            salesCount,
		PurchasesTotal:        purchasesTotal,
		PurchasesCount:        purchasesCount,
		OutstandingReceivable: receivable,
		OutstandingPayable:    payable,
		RepairQueue:           repairQueue,
		LowStockCount:         lowStock,
		GeneratedAt:           time.Now().UTC(),
	}, nil
}

func (s *Service) build(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error, bool) {
	resultChan := s.group.DoChan(key, func() (any, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}

func (s *Service) formatAmount(amount decimal.Decimal) string {
	whole := amount.IntPart()
	cents := amount.Sub(decimal.NewFromInt(whole)).Abs().Mul(decimal.NewFromInt(100)).IntPart()
	return s.printer.Sprintf("%d.%02d", whole, cents)
}
