package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/L1nkStart/optimizacion-combinatoria/internal/dto"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/report"
	appErrors "github.com/L1nkStart/optimizacion-combinatoria/pkg/errors"
	"github.com/L1nkStart/optimizacion-combinatoria/pkg/export"
	"github.com/L1nkStart/optimizacion-combinatoria/pkg/storage"
)

type runOutcomes interface {
	Outcome(ctx context.Context, id string) (*RunOutcome, error)
}

type fileStorage interface {
	Save(relPath string, data []byte) (string, error)
	Read(relPath string) ([]byte, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type linkSigner interface {
	Sign(runID, relPath string) (string, storage.Link, error)
	Verify(token string, allowExpired bool) (storage.Link, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	// RetainFor is how long stored files are kept. Defaults to a day.
	RetainFor time.Duration
}

// Rendered is an export ready to send.
type Rendered struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders finished runs and hands out signed download links.
type ExportService struct {
	runs    runOutcomes
	storage fileStorage
	signer  linkSigner
	metrics *MetricsService
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService. storage and signer may be
// nil when only direct downloads are served.
func NewExportService(runs runOutcomes, store fileStorage, signer linkSigner, cfg ExportConfig, metrics *MetricsService, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RetainFor <= 0 {
		cfg.RetainFor = 24 * time.Hour
	}
	return &ExportService{runs: runs, storage: store, signer: signer, metrics: metrics, logger: logger, cfg: cfg}
}

// Render builds the export of run id in format.
func (s *ExportService) Render(ctx context.Context, id, format string) (*Rendered, error) {
	renderer, err := export.ForFormat(format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	outcome, err := s.runs.Outcome(ctx, id)
	if err != nil {
		return nil, err
	}

	title := fmt.Sprintf("Timetable %s", outcome.Resolved.Name)
	if outcome.Resolved.Name == "" {
		title = "Timetable"
	}
	doc := report.Document(outcome.Resolved, outcome.Schedule, title, outcome.History)
	body, err := renderer.Render(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.metrics.RecordExport(renderer.Extension())

	return &Rendered{
		Filename:    fmt.Sprintf("timetable-%s.%s", shortID(id), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

// Publish renders run id, stores the file and returns a signed link to it.
func (s *ExportService) Publish(ctx context.Context, id string, req dto.ExportRequest) (*dto.ExportLink, error) {
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "export storage is not configured")
	}
	rendered, err := s.Render(ctx, id, req.Format)
	if err != nil {
		return nil, err
	}

	stamp := time.Now().UTC().Format("20060102T150405")
	relPath, err := s.storage.Save(path.Join(id, stamp, rendered.Filename), rendered.Body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, link, err := s.signer.Sign(id, relPath)
	if err != nil {
		return nil, err
	}

	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Info("export stored", zap.String("run_id", id), zap.String("path", relPath), zap.Int("bytes", len(rendered.Body)))
	return &dto.ExportLink{
		Format:    strings.ToLower(req.Format),
		Token:     token,
		URL:       fmt.Sprintf("%s/timetable/exports/%s", prefix, token),
		ExpiresAt: link.ExpiresAt,
	}, nil
}

// Download resolves a signed token to the stored file.
func (s *ExportService) Download(ctx context.Context, token string) (*Rendered, error) {
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "export storage is not configured")
	}
	link, err := s.signer.Verify(token, false)
	if err != nil {
		return nil, err
	}
	body, err := s.storage.Read(link.Path)
	if err != nil {
		return nil, err
	}

	filename := path.Base(link.Path)
	contentType := "application/octet-stream"
	if renderer, err := export.ForFormat(strings.TrimPrefix(path.Ext(filename), ".")); err == nil {
		contentType = renderer.ContentType()
	}
	return &Rendered{Filename: filename, ContentType: contentType, Body: body}, nil
}

// Cleanup removes stored files older than the retention window.
func (s *ExportService) Cleanup() ([]string, error) {
	if s.storage == nil {
		return nil, nil
	}
	return s.storage.CleanupOlderThan(s.cfg.RetainFor)
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (s *ExportService) RunCleanup(ctx context.Context, interval time.Duration) {
	if s.storage == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.Cleanup()
			if err != nil {
				s.logger.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
			}
		}
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
