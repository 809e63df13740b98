package workers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nexcell-pos/nexcell-pos/internal/authz"
	"github.com/nexcell-pos/nexcell-pos/internal/platform/httpx"
	"github.com/nexcell-pos/nexcell-pos/internal/shared"
)

type memoryWorkerRepo struct {
	workers map[int64]Worker
	hashes  map[int64]string
	nextID  int64
}

func newMemoryWorkerRepo() *memoryWorkerRepo {
	return &memoryWorkerRepo{
		workers: make(map[int64]Worker),
		hashes:  make(map[int64]string),
	}
}

func (r *memoryWorkerRepo) List(ctx context.Context, filters shared.ListFilters) ([]Worker, int, error) {
	var out []Worker
	for _, w := range r.workers {
		out = append(out, w)
	}
	return out, len(out), nil
}

func (r *memoryWorkerRepo) Get(ctx context.Context, id int64) (Worker, error) {
	w, ok := r.workers[id]
	if !ok {
		return Worker{}, httpx.ErrNotFound
	}
	return w, nil
}

func (r *memoryWorkerRepo) Create(ctx context.Context, input CreateInput, passwordHash string) (Worker, error) {
	r.nextID++
	w := Worker{
		ID:       r.nextID,
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		Role:     input.Role,
		IsActive: true,
	}
	r.workers[w.ID] = w
	r.hashes[w.ID] = passwordHash
	return w, nil
}

func (r *memoryWorkerRepo) Update(ctx context.Context, id int64, input UpdateInput, passwordHash string) error {
	w, ok := r.workers[id]
	if !ok {
		return httpx.ErrNotFound
	}
	w.Name = input.Name
	w.Email = input.Email
	w.Phone = input.Phone
	w.Role = input.Role
	w.IsActive = input.IsActive
	r.workers[id] = w
	if passwordHash != "" {
		r.hashes[id] = passwordHash
	}
	return nil
}

func (r *memoryWorkerRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.workers[id]; !ok {
		return httpx.ErrNotFound
	}
	delete(r.workers, id)
	return nil
}

func TestCreateHashesPasswordAndNormalises(t *testing.T) {
	repo := newMemoryWorkerRepo()
	svc := NewService(repo)

	worker, err := svc.Create(context.Background(), CreateInput{
		Name:     "  Cathy Cashier ",
		Email:    " Cashier@Nexcell.LOCAL ",
		Role:     authz.RoleCashier,
		Password: "cashier-secret",
	})
	require.NoError(t, err)
	require.Equal(t, "Cathy Cashier", worker.Name)
	require.Equal(t, "cashier@nexcell.local", worker.Email)
	require.True(t, worker.IsActive)

	hash := repo.hashes[worker.ID]
	require.NotEqual(t, "cashier-secret", hash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("cashier-secret")))
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryWorkerRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Email: "a@b.c", Role: authz.RoleCashier, Password: "longenough"})
	require.True(t, errors.Is(err, httpx.ErrValidation))

	_, err = svc.Create(ctx, CreateInput{Name: "A", Email: "a@b.c", Role: "SUPERUSER", Password: "longenough"})
	require.True(t, errors.Is(err, httpx.ErrValidation))

	_, err = svc.Create(ctx, CreateInput{Name: "A", Email: "a@b.c", Role: authz.RoleCashier, Password: "short"})
	require.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestUpdateKeepsPasswordWhenEmpty(t *testing.T) {
	repo := newMemoryWorkerRepo()
	svc := NewService(repo)
	ctx := context.Background()

	worker, err := svc.Create(ctx, CreateInput{
		Name:     "Theo",
		Email:    "tech@nexcell.local",
		Role:     authz.RoleTechnician,
		Password: "tech-secret",
	})
	require.NoError(t, err)
	originalHash := repo.hashes[worker.ID]

	err = svc.Update(ctx, worker.ID, UpdateInput{
		Name:     "Theo Technician",
		Email:    "tech@nexcell.local",
		Role:     authz.RoleTechnician,
		IsActive: true,
	})
	require.NoError(t, err)
	require.Equal(t, originalHash, repo.hashes[worker.ID])
	require.Equal(t, "Theo Technician", repo.workers[worker.ID].Name)

	err = svc.Update(ctx, worker.ID, UpdateInput{
		Name:     "Theo Technician",
		Email:    "tech@nexcell.local",
		Role:     authz.RoleTechnician,
		IsActive: true,
		Password: "brand-new-secret",
	})
	require.NoError(t, err)
	require.NotEqual(t, originalHash, repo.hashes[worker.ID])
}
