package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rucachi/NGII-ICUH/internal/core/domain"
	"github.com/rucachi/NGII-ICUH/internal/core/ports"
)

// WatershedService serves basin boundaries from the loaded shapefile.
type WatershedService struct {
	sheds ports.WatershedRepository
	cache ports.CacheService
}

// NewWatershedService creates a WatershedService.
func NewWatershedService(sheds ports.WatershedRepository, cache ports.CacheService) *WatershedService {
	return &WatershedService{sheds: sheds, cache: cache}
}

// List returns all watersheds without boundary geometry.
func (s *WatershedService) List(ctx context.Context) ([]domain.Watershed, error) {
	return s.sheds.List(ctx)
}

// GetByCode returns one watershed including its boundary polygon.
func (s *WatershedService) GetByCode(ctx context.Context, code string) (*domain.Watershed, error) {
	if code == "" {
		return nil, fmt.Errorf("watershed code must not be empty")
	}

	cacheKey := "watershed:code:" + code
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var w domain.Watershed
			if err := json.Unmarshal(data, &w); err == nil {
				return &w, nil
			}
		}
	}

	w, err := s.sheds.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	// Boundaries never change while the process runs.
	if s.cache != nil {
		if data, err := json.Marshal(w); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 3600)
		}
	}
	return w, nil
}

// FindByPoint returns the watershed containing a WGS84 coordinate.
func (s *WatershedService) FindByPoint(ctx context.Context, lat, lon float64) (*domain.Watershed, error) {
	return s.sheds.FindByPoint(ctx, lat, lon)
}

// FindByBounds returns watersheds overlapping a bounding box.
func (s *WatershedService) FindByBounds(ctx context.Context, b domain.Bounds) ([]domain.Watershed, error) {
	return s.sheds.FindByBounds(ctx, b)
}
