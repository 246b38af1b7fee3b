package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/L1nkStart/optimizacion-combinatoria/internal/catalog"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/dto"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/service"
	appErrors "github.com/L1nkStart/optimizacion-combinatoria/pkg/errors"
	"github.com/L1nkStart/optimizacion-combinatoria/pkg/logger"
	"github.com/L1nkStart/optimizacion-combinatoria/pkg/response"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
)

type timetableService interface {
	Solve(ctx context.Context, req dto.SolveRequest) (*dto.SolveResponse, error)
	Evaluate(ctx context.Context, req dto.EvaluateRequest) (*dto.EvaluateResponse, error)
	StartRun(ctx context.Context, req dto.SolveRequest) (*dto.RunView, error)
	GetRun(ctx context.Context, id string) (*dto.RunView, error)
	ListRuns(ctx context.Context) []dto.RunView
	CancelRun(ctx context.Context, id string) (*dto.RunView, error)
	Subscribe(id string) (<-chan dto.RunView, func(), error)
}

type exportService interface {
	Render(ctx context.Context, id, format string) (*service.Rendered, error)
	Publish(ctx context.Context, id string, req dto.ExportRequest) (*dto.ExportLink, error)
	Download(ctx context.Context, token string) (*service.Rendered, error)
}

type catalogProvider interface {
	Resolve(ctx context.Context, p *dto.CatalogPayload) (*catalog.Resolved, error)
}

type catalogResponse struct {
	Name          string             `json:"name"`
	TotalSessions int                `json:"totalSessions"`
	Catalog       dto.CatalogPayload `json:"catalog"`
}

// TimetableHandler exposes the timetable search endpoints.
type TimetableHandler struct {
	timetable timetableService
	exports   exportService
	catalogs  catalogProvider
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

// NewTimetableHandler constructs the handler. allowedOrigins restricts which
// browser origins may open run streams; empty allows any.
func NewTimetableHandler(timetable *service.TimetableService, exports *service.ExportService, catalogs *service.CatalogService, allowedOrigins []string, logger *zap.Logger) *TimetableHandler {
	return newTimetableHandler(timetable, exports, catalogs, allowedOrigins, logger)
}

func newTimetableHandler(timetable timetableService, exports exportService, catalogs catalogProvider, allowedOrigins []string, logger *zap.Logger) *TimetableHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableHandler{
		timetable: timetable,
		exports:   exports,
		catalogs:  catalogs,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// Catalog godoc
// @Summary Show the configured catalog
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/catalog [get]
func (h *TimetableHandler) Catalog(c *gin.Context) {
	resolved, err := h.catalogs.Resolve(c.Request.Context(), nil)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, catalogResponse{
		Name:          resolved.Name,
		TotalSessions: resolved.Catalog.TotalSessions(),
		Catalog:       resolved.Payload,
	})
}

// Solve godoc
// @Summary Search for a timetable and wait for the result
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.SolveRequest false "Catalog, seed and tuning overrides"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetable/solve [post]
func (h *TimetableHandler) Solve(c *gin.Context) {
	req, ok := bindSolveRequest(c)
	if !ok {
		return
	}
	result, err := h.timetable.Solve(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Evaluate godoc
// @Summary Score a hand-made schedule
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.EvaluateRequest true "Schedule to score"
// @Success 200 {object} response.Envelope
// @Router /timetable/evaluate [post]
func (h *TimetableHandler) Evaluate(c *gin.Context) {
	var req dto.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid evaluate payload"))
		return
	}
	result, err := h.timetable.Evaluate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// StartRun godoc
// @Summary Queue an asynchronous search
// @Tags Timetable Runs
// @Accept json
// @Produce json
// @Param payload body dto.SolveRequest false "Catalog, seed and tuning overrides"
// @Success 202 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /timetable/runs [post]
func (h *TimetableHandler) StartRun(c *gin.Context) {
	req, ok := bindSolveRequest(c)
	if !ok {
		return
	}
	run, err := h.timetable.StartRun(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		logger.WithContext(c.Request.Context(), h.logger).Info("timetable run requested", zap.String("run_id", run.ID), zap.String("user_id", claims.UserID), zap.String("role", string(claims.Role)))
	}
	c.Header("Location", strings.TrimSuffix(c.Request.URL.Path, "/")+"/"+run.ID)
	response.Accepted(c, run)
}

// ListRuns godoc
// @Summary List asynchronous runs
// @Tags Timetable Runs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/runs [get]
func (h *TimetableHandler) ListRuns(c *gin.Context) {
	runs := h.timetable.ListRuns(c.Request.Context())
	response.JSON(c, http.StatusOK, runs, map[string]interface{}{"total": len(runs)})
}

// GetRun godoc
// @Summary Get a run and its result
// @Tags Timetable Runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/runs/{id} [get]
func (h *TimetableHandler) GetRun(c *gin.Context) {
	run, err := h.timetable.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run)
}

// CancelRun godoc
// @Summary Cancel a pending or running search
// @Tags Timetable Runs
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetable/runs/{id}/cancel [post]
func (h *TimetableHandler) CancelRun(c *gin.Context) {
	run, err := h.timetable.CancelRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run)
}

// StreamRun godoc
// @Summary Stream run progress over a websocket
// @Description Sends a RunView JSON message on every change and closes once the run is terminal.
// @Tags Timetable Runs
// @Param id path string true "Run ID"
// @Success 101
// @Router /timetable/runs/{id}/ws [get]
func (h *TimetableHandler) StreamRun(c *gin.Context) {
	id := c.Param("id")
	updates, release, err := h.timetable.Subscribe(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer release()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already replied to the client.
		logger.WithContext(c.Request.Context(), h.logger).Debug("websocket upgrade failed", zap.String("run_id", id), zap.Error(err))
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case view, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"),
					time.Now().Add(wsWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(view); err != nil {
				h.logger.Debug("websocket write failed", zap.String("run_id", id), zap.Error(err))
				return
			}
		}
	}
}

// Export godoc
// @Summary Download a finished run as a file
// @Tags Timetable Exports
// @Produce octet-stream
// @Param id path string true "Run ID"
// @Param format query string false "csv, pdf, xlsx, html or txt" default(csv)
// @Success 200
// @Failure 409 {object} response.Envelope
// @Router /timetable/runs/{id}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	rendered, err := h.exports.Render(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, rendered.Filename, rendered.ContentType, rendered.Body)
}

// PublishExport godoc
// @Summary Store an export of a finished run and return a signed link
// @Tags Timetable Exports
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Param payload body dto.ExportRequest true "Export format"
// @Success 201 {object} response.Envelope
// @Router /timetable/runs/{id}/exports [post]
func (h *TimetableHandler) PublishExport(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	link, err := h.exports.Publish(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// DownloadExport godoc
// @Summary Download a stored export through its signed token
// @Tags Timetable Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200
// @Failure 403 {object} response.Envelope
// @Router /timetable/exports/{token} [get]
func (h *TimetableHandler) DownloadExport(c *gin.Context) {
	rendered, err := h.exports.Download(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, rendered.Filename, rendered.ContentType, rendered.Body)
}

// bindSolveRequest accepts an empty body as "use the configured catalog".
func bindSolveRequest(c *gin.Context) (dto.SolveRequest, bool) {
	var req dto.SolveRequest
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, true
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid solve payload"))
		return req, false
	}
	return req, true
}
