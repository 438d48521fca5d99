package usecases_test

import (
	"context"
	"testing"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
	"github.com/rucachi/NGII-ICUH/internal/core/usecases"
)

// mockShedRepo implements WatershedRepository with overridable functions.
type mockShedRepo struct {
	listFn     func(ctx context.Context) ([]domain.Watershed, error)
	getFn      func(ctx context.Context, code string) (*domain.Watershed, error)
	pointFn    func(ctx context.Context, lat, lon float64) (*domain.Watershed, error)
	boundsFn   func(ctx context.Context, b domain.Bounds) ([]domain.Watershed, error)
	getCalls   int
	pointCalls int
}

func (m *mockShedRepo) List(ctx context.Context) ([]domain.Watershed, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockShedRepo) GetByCode(ctx context.Context, code string) (*domain.Watershed, error) {
	m.getCalls++
	if m.getFn != nil {
		return m.getFn(ctx, code)
	}
	return nil, domain.ErrNotFound
}

func (m *mockShedRepo) FindByPoint(ctx context.Context, lat, lon float64) (*domain.Watershed, error) {
	m.pointCalls++
	if m.pointFn != nil {
		return m.pointFn(ctx, lat, lon)
	}
	return nil, domain.ErrNotFound
}

func (m *mockShedRepo) FindByBounds(ctx context.Context, b domain.Bounds) ([]domain.Watershed, error) {
	if m.boundsFn != nil {
		return m.boundsFn(ctx, b)
	}
	return nil, nil
}

func geumBasin() *domain.Watershed {
	return &domain.Watershed{
		Code:    "3001",
		Name:    "Geum River",
		Bounds:  domain.Bounds{MinLat: 35.9, MinLon: 127.0, MaxLat: 36.6, MaxLon: 127.8},
		AreaKm2: 9912.5,
	}
}

func TestWatershedGetByCodeCached(t *testing.T) {
	repo := &mockShedRepo{
		getFn: func(ctx context.Context, code string) (*domain.Watershed, error) {
			if code != "3001" {
				return nil, domain.ErrNotFound
			}
			return geumBasin(), nil
		},
	}
	svc := usecases.NewWatershedService(repo, newMemCache())

	for i := 0; i < 2; i++ {
		w, err := svc.GetByCode(context.Background(), "3001")
		if err != nil {
			t.Fatalf("get %d: %v", i, err)
		}
		if w.Name != "Geum River" {
			t.Errorf("get %d: name %q", i, w.Name)
		}
	}
	if repo.getCalls != 1 {
		t.Errorf("expected one repository hit, got %d", repo.getCalls)
	}
}

func TestWatershedGetByCodeEmpty(t *testing.T) {
	svc := usecases.NewWatershedService(&mockShedRepo{}, nil)
	if _, err := svc.GetByCode(context.Background(), ""); err == nil {
		t.Fatal("expected an error for an empty code")
	}
}

func TestWatershedFindByPoint(t *testing.T) {
	repo := &mockShedRepo{
		pointFn: func(ctx context.Context, lat, lon float64) (*domain.Watershed, error) {
			if geumBasin().Bounds.Contains(domain.GeoPoint{Lat: lat, Lon: lon}) {
				return geumBasin(), nil
			}
			return nil, domain.ErrNotFound
		},
	}
	svc := usecases.NewWatershedService(repo, nil)

	w, err := svc.FindByPoint(context.Background(), 36.2, 127.4)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if w.Code != "3001" {
		t.Errorf("found %q", w.Code)
	}
	if _, err := svc.FindByPoint(context.Background(), 50.0, 10.0); err == nil {
		t.Error("expected no basin for a point far outside")
	}
}
