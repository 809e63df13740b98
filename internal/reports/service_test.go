package reports

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type mockReportRepo struct {
	salesTotal     decimal.Decimal
	salesCount     int
	purchasesTotal decimal.Decimal
	purchasesCount int
	receivable     decimal.Decimal
	payable        decimal.Decimal
	repairCounts   map[string]int
	lowStock       int
	agingBuckets   []AgingBucket
	totalsCalls    int
	agingCalls     int
}

func (m *mockReportRepo) DocumentTotals(ctx context.Context, table string, from, to time.Time) (decimal.Decimal, int, error) {
	m.totalsCalls++
	if table == "sales" {
		return m.salesTotal, m.salesCount, nil
	}
	return m.purchasesTotal, m.purchasesCount, nil
}

func (m *mockReportRepo) Outstanding(ctx context.Context, tables []string) (decimal.Decimal, error) {
	if tables[0] == "sales" {
		return m.receivable, nil
	}
	return m.payable, nil
}

func (m *mockReportRepo) RepairCounts(ctx context.Context) (map[string]int, error) {
	return m.repairCounts, nil
}

func (m *mockReportRepo) LowStockCount(ctx context.Context, threshold int) (int, error) {
	return m.lowStock, nil
}

func (m *mockReportRepo) Aging(ctx context.Context, table string) ([]AgingBucket, error) {
	m.agingCalls++
	return m.agingBuckets, nil
}

func newTestService(t *testing.T, repo Repository) (*Service, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	svc := NewService(repo, cache)
	return svc, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestSummaryCachesUntilBump(t *testing.T) {
	repo := &mockReportRepo{
		salesTotal:     decimal.RequireFromString("12500.50"),
		salesCount:     17,
		purchasesTotal: decimal.RequireFromString("8000.00"),
		purchasesCount: 4,
		receivable:     decimal.RequireFromString("300.00"),
		payable:        decimal.RequireFromString("1200.00"),
		repairCounts:   map[string]int{"RECEIVED": 2, "IN_PROGRESS": 1},
		lowStock:       3,
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	ctx := context.Background()
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	summary, err := svc.Summary(ctx, from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.SalesCount != 17 {
		t.Fatalf("expected 17 sales got %d", summary.SalesCount)
	}
	if got := summary.SalesTotal.StringFixed(2); got != "12500.50" {
		t.Fatalf("expected sales total 12500.50 got %s", got)
	}
	if summary.SalesTotalFormatted != "12,500.50" {
		t.Fatalf("expected grouped display total, got %q", summary.SalesTotalFormatted)
	}
	if summary.RepairQueue["RECEIVED"] != 2 {
		t.Fatalf("expected repair queue in summary, got %+v", summary.RepairQueue)
	}
	if repo.totalsCalls != 2 {
		t.Fatalf("expected 2 totals queries (sales, purchases), got %d", repo.totalsCalls)
	}

	// Second call should hit cache.
	if _, err := svc.Summary(ctx, from, to); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.totalsCalls != 2 {
		t.Fatalf("expected cached result, repo called %d times", repo.totalsCalls)
	}

	// Bumping the version must trigger a rebuild.
	if err := svc.Bump(ctx); err != nil {
		t.Fatalf("bump failed: %v", err)
	}
	repo.salesCount = 18
	summary, err = svc.Summary(ctx, from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.SalesCount != 18 {
		t.Fatalf("expected refreshed count 18 got %d", summary.SalesCount)
	}
	if repo.totalsCalls != 4 {
		t.Fatalf("expected repo to refresh, calls %d", repo.totalsCalls)
	}
}

func TestSummaryRejectsEmptyRange(t *testing.T) {
	svc, cleanup := newTestService(t, &mockReportRepo{})
	defer cleanup()

	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Summary(context.Background(), day, day); err == nil {
		t.Fatal("expected error for empty range")
	}
}

func TestAgingSidesAndCache(t *testing.T) {
	repo := &mockReportRepo{
		agingBuckets: []AgingBucket{
			{Label: "0-30", Count: 2, Amount: decimal.RequireFromString("150.00")},
			{Label: "31-60", Count: 1, Amount: decimal.RequireFromString("50.00")},
			{Label: "61-90", Count: 0, Amount: decimal.Zero},
			{Label: "90+", Count: 0, Amount: decimal.Zero},
		},
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	ctx := context.Background()
	aging, err := svc.Aging(ctx, SideReceivable)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if aging.Side != SideReceivable {
		t.Fatalf("expected receivable side got %s", aging.Side)
	}
	if len(aging.Buckets) != 4 {
		t.Fatalf("expected 4 buckets got %d", len(aging.Buckets))
	}
	if got := aging.Total.StringFixed(2); got != "200.00" {
		t.Fatalf("expected total 200.00 got %s", got)
	}

	// receivable and payable are distinct keys, a second side builds again.
	if _, err := svc.Aging(ctx, SidePayable); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.agingCalls != 2 {
		t.Fatalf("expected 2 builds got %d", repo.agingCalls)
	}

	// Re-reading either side stays cached.
	if _, err := svc.Aging(ctx, SideReceivable); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.agingCalls != 2 {
		t.Fatalf("expected cached aging, repo calls %d", repo.agingCalls)
	}

	if _, err := svc.Aging(ctx, "sideways"); err == nil {
		t.Fatal("expected error for unknown side")
	}
}

func TestWarmupBuildsAllDefaults(t *testing.T) {
	repo := &mockReportRepo{
		repairCounts: map[string]int{},
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	if err := svc.Warmup(context.Background()); err != nil {
		t.Fatalf("warmup failed: %v", err)
	}
	if repo.totalsCalls != 2 {
		t.Fatalf("expected summary built once, totals calls %d", repo.totalsCalls)
	}
	if repo.agingCalls != 2 {
		t.Fatalf("expected both aging sides built, calls %d", repo.agingCalls)
	}
}
