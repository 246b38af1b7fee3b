package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/L1nkStart/optimizacion-combinatoria/internal/catalog"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/dto"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/models"
	"github.com/L1nkStart/optimizacion-combinatoria/pkg/config"
	appErrors "github.com/L1nkStart/optimizacion-combinatoria/pkg/errors"
)

type catalogRepository interface {
	Snapshot(ctx context.Context) (*models.CatalogSnapshot, error)
	Version(ctx context.Context) (string, error)
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// CatalogService resolves the catalog used when a request does not carry
// its own.
type CatalogService struct {
	cfg       config.CatalogConfig
	repo      catalogRepository
	cache     catalogCache
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger

	// file and sample catalogs never change while the process runs.
	once      sync.Once
	static    *catalog.Resolved
	staticErr error
}

// NewCatalogService builds the service. repo and cache are only needed for
// the database source.
func NewCatalogService(cfg config.CatalogConfig, repo catalogRepository, cache catalogCache, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *CatalogService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Source == "" {
		cfg.Source = config.CatalogSourceSample
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	return &CatalogService{cfg: cfg, repo: repo, cache: cache, validator: validate, metrics: metrics, logger: logger}
}

// Resolve validates p when given, otherwise loads the configured catalog.
func (s *CatalogService) Resolve(ctx context.Context, p *dto.CatalogPayload) (*catalog.Resolved, error) {
	if p != nil {
		return s.build(*p)
	}
	switch s.cfg.Source {
	case config.CatalogSourceSample, config.CatalogSourceFile:
		s.once.Do(func() {
			s.static, s.staticErr = s.loadStatic()
		})
		return s.static, s.staticErr
	case config.CatalogSourceDatabase:
		return s.fromDatabase(ctx)
	default:
		return nil, appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("unknown catalog source %q", s.cfg.Source))
	}
}

func (s *CatalogService) loadStatic() (*catalog.Resolved, error) {
	if s.cfg.Source == config.CatalogSourceSample {
		return s.build(catalog.Sample())
	}
	payload, err := catalog.LoadFile(s.cfg.File)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidCatalog.Code, appErrors.ErrInvalidCatalog.Status, "failed to load catalog file")
	}
	resolved, err := s.build(payload)
	if err != nil {
		return nil, err
	}
	s.logger.Info("catalog loaded from file", zap.String("file", s.cfg.File), zap.Int("sessions", resolved.Catalog.TotalSessions()))
	return resolved, nil
}

func (s *CatalogService) fromDatabase(ctx context.Context) (*catalog.Resolved, error) {
	if s.repo == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "catalog database is not configured")
	}
	version, err := s.repo.Version(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read catalog version")
	}
	key := "catalog:" + version

	if s.cache != nil {
		var cached dto.CatalogPayload
		err := s.cache.Get(ctx, key, &cached)
		switch {
		case err == nil:
			s.metrics.RecordCacheLookup(true)
			return s.build(cached)
		case appErrors.Is(err, appErrors.ErrCacheMiss):
			s.metrics.RecordCacheLookup(false)
		default:
			s.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
	}
	payload := catalog.FromSnapshot(*snap)
	resolved, err := s.build(payload)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, payload, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return resolved, nil
}

func (s *CatalogService) build(p dto.CatalogPayload) (*catalog.Resolved, error) {
	if err := s.validator.Struct(p); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidCatalog.Code, appErrors.ErrInvalidCatalog.Status, "invalid catalog payload")
	}
	return catalog.Build(p)
}
