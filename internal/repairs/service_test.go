package repairs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nexcell-pos/nexcell-pos/internal/platform/httpx"
	"github.com/nexcell-pos/nexcell-pos/internal/shared"
)

type memoryRepairRepo struct {
	tickets map[int64]Ticket
	nextID  int64
}

func newMemoryRepairRepo() *memoryRepairRepo {
	return &memoryRepairRepo{tickets: make(map[int64]Ticket)}
}

func (r *memoryRepairRepo) Create(ctx context.Context, ticket Ticket) (Ticket, error) {
	r.nextID++
	ticket.ID = r.nextID
	ticket.Number = fmt.Sprintf("REP-%06d", r.nextID)
	ticket.Status = StatusReceived
	ticket.CreatedAt = time.Now().UTC()
	ticket.UpdatedAt = ticket.CreatedAt
	r.tickets[ticket.ID] = ticket
	return ticket, nil
}

func (r *memoryRepairRepo) Get(ctx context.Context, id int64) (Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return Ticket{}, ErrTicketNotFound
	}
	return ticket, nil
}

func (r *memoryRepairRepo) List(ctx context.Context, filters shared.ListFilters, status Status) ([]Ticket, int, error) {
	var out []Ticket
	for _, ticket := range r.tickets {
		if status != "" && ticket.Status != status {
			continue
		}
		out = append(out, ticket)
	}
	return out, len(out), nil
}

func (r *memoryRepairRepo) Update(ctx context.Context, id int64, ticket Ticket) error {
	existing, ok := r.tickets[id]
	if !ok {
		return ErrTicketNotFound
	}
	existing.CustomerID = ticket.CustomerID
	existing.Device = ticket.Device
	existing.Issue = ticket.Issue
	existing.Fee = ticket.Fee
	existing.TechnicianID = ticket.TechnicianID
	existing.UpdatedAt = time.Now().UTC()
	r.tickets[id] = existing
	return nil
}

func (r *memoryRepairRepo) UpdateStatus(ctx context.Context, id int64, next Status, technicianID *int64) (Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return Ticket{}, ErrTicketNotFound
	}
	if !ticket.Status.CanTransitionTo(next) {
		return Ticket{}, ErrBadTransition
	}
	ticket.Status = next
	if technicianID != nil {
		ticket.TechnicianID = technicianID
	}
	ticket.UpdatedAt = time.Now().UTC()
	r.tickets[id] = ticket
	return ticket, nil
}

func (r *memoryRepairRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.tickets[id]; !ok {
		return ErrTicketNotFound
	}
	delete(r.tickets, id)
	return nil
}

func (r *memoryRepairRepo) CountByStatus(ctx context.Context) (map[Status]int, error) {
	counts := make(map[Status]int)
	for _, ticket := range r.tickets {
		counts[ticket.Status]++
	}
	return counts, nil
}

func openTicket(t *testing.T, svc *Service) Ticket {
	t.Helper()
	ticket, err := svc.Create(context.Background(), CreateInput{
		CustomerID: 1,
		Device:     "iPhone 13",
		Issue:      "cracked screen",
		Fee:        decimal.RequireFromString("80.00"),
		ActorID:    2,
	})
	require.NoError(t, err)
	return ticket
}

func TestCreateOpensTicketReceived(t *testing.T) {
	svc := NewService(newMemoryRepairRepo())
	ticket := openTicket(t, svc)
	require.Equal(t, StatusReceived, ticket.Status)
	require.Equal(t, "REP-000001", ticket.Number)
	require.Equal(t, "80.00", ticket.Fee.StringFixed(2))
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepairRepo())

	_, err := svc.Create(context.Background(), CreateInput{CustomerID: 0, Device: "x"})
	require.True(t, errors.Is(err, httpx.ErrValidation))

	_, err = svc.Create(context.Background(), CreateInput{CustomerID: 1, Device: "  "})
	require.True(t, errors.Is(err, httpx.ErrValidation))

	_, err = svc.Create(context.Background(), CreateInput{
		CustomerID: 1,
		Device:     "iPhone",
		Fee:        decimal.RequireFromString("-1.00"),
	})
	require.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestLifecycleMovesForwardOnly(t *testing.T) {
	repo := newMemoryRepairRepo()
	svc := NewService(repo)
	ticket := openTicket(t, svc)
	ctx := context.Background()

	for _, next := range []Status{StatusInProgress, StatusCompleted, StatusDelivered} {
		updated, err := svc.Transition(ctx, ticket.ID, next, nil)
		require.NoError(t, err)
		require.Equal(t, next, updated.Status)
	}

	// Delivered is terminal.
	_, err := svc.Transition(ctx, ticket.ID, StatusInProgress, nil)
	require.ErrorIs(t, err, ErrBadTransition)
}

func TestTransitionCannotSkipStates(t *testing.T) {
	svc := NewService(newMemoryRepairRepo())
	ticket := openTicket(t, svc)

	_, err := svc.Transition(context.Background(), ticket.ID, StatusCompleted, nil)
	require.ErrorIs(t, err, ErrBadTransition)
	_, err = svc.Transition(context.Background(), ticket.ID, StatusDelivered, nil)
	require.ErrorIs(t, err, ErrBadTransition)
}

func TestTransitionAssignsTechnician(t *testing.T) {
	repo := newMemoryRepairRepo()
	svc := NewService(repo)
	ticket := openTicket(t, svc)

	techID := int64(42)
	updated, err := svc.Transition(context.Background(), ticket.ID, StatusInProgress, &techID)
	require.NoError(t, err)
	require.NotNil(t, updated.TechnicianID)
	require.Equal(t, techID, *updated.TechnicianID)

	// A later transition without a technician keeps the assignment.
	updated, err = svc.Transition(context.Background(), ticket.ID, StatusCompleted, nil)
	require.NoError(t, err)
	require.NotNil(t, updated.TechnicianID)
	require.Equal(t, techID, *updated.TechnicianID)
}

func TestTransitionUnknownStatus(t *testing.T) {
	svc := NewService(newMemoryRepairRepo())
	ticket := openTicket(t, svc)

	_, err := svc.Transition(context.Background(), ticket.ID, Status("SHIPPED"), nil)
	require.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestUpdateDoesNotTouchLifecycle(t *testing.T) {
	repo := newMemoryRepairRepo()
	svc := NewService(repo)
	ticket := openTicket(t, svc)

	_, err := svc.Transition(context.Background(), ticket.ID, StatusInProgress, nil)
	require.NoError(t, err)

	err = svc.Update(context.Background(), ticket.ID, UpdateInput{
		CustomerID: 1,
		Device:     "iPhone 13 Pro",
		Issue:      "cracked screen and battery",
		Fee:        decimal.RequireFromString("95.00"),
	})
	require.NoError(t, err)

	stored, err := svc.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	require.Equal(t, "iPhone 13 Pro", stored.Device)
	require.Equal(t, StatusInProgress, stored.Status)
}

func TestListFiltersByStatus(t *testing.T) {
	repo := newMemoryRepairRepo()
	svc := NewService(repo)
	a := openTicket(t, svc)
	openTicket(t, svc)

	_, err := svc.Transition(context.Background(), a.ID, StatusInProgress, nil)
	require.NoError(t, err)

	inProgress, total, err := svc.List(context.Background(), shared.ListFilters{}, StatusInProgress)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Len(t, inProgress, 1)

	_, _, err = svc.List(context.Background(), shared.ListFilters{}, Status("BROKEN"))
	require.True(t, errors.Is(err, httpx.ErrValidation))
}
