package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/L1nkStart/optimizacion-combinatoria/internal/catalog"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/dto"
	internalmiddleware "github.com/L1nkStart/optimizacion-combinatoria/internal/middleware"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/models"
	"github.com/L1nkStart/optimizacion-combinatoria/internal/service"
	appErrors "github.com/L1nkStart/optimizacion-combinatoria/pkg/errors"
)

type timetableMock struct {
	solveReq  dto.SolveRequest
	solveErr  error
	runs      map[string]dto.RunView
	updates   []dto.RunView
	cancelErr error
}

func (m *timetableMock) Solve(ctx context.Context, req dto.SolveRequest) (*dto.SolveResponse, error) {
	m.solveReq = req
	if m.solveErr != nil {
		return nil, m.solveErr
	}
	return &dto.SolveResponse{Seed: 42, Perfect: true}, nil
}

func (m *timetableMock) Evaluate(ctx context.Context, req dto.EvaluateRequest) (*dto.EvaluateResponse, error) {
	return &dto.EvaluateResponse{Penalty: 200}, nil
}

func (m *timetableMock) StartRun(ctx context.Context, req dto.SolveRequest) (*dto.RunView, error) {
	return &dto.RunView{ID: "run-1", Status: string(models.RunPending)}, nil
}

func (m *timetableMock) GetRun(ctx context.Context, id string) (*dto.RunView, error) {
	v, ok := m.runs[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "run not found")
	}
	return &v, nil
}

func (m *timetableMock) ListRuns(ctx context.Context) []dto.RunView {
	out := make([]dto.RunView, 0, len(m.runs))
	for _, v := range m.runs {
		out = append(out, v)
	}
	return out
}

func (m *timetableMock) CancelRun(ctx context.Context, id string) (*dto.RunView, error) {
	if m.cancelErr != nil {
		return nil, m.cancelErr
	}
	return &dto.RunView{ID: id, Status: string(models.RunCancelled)}, nil
}

func (m *timetableMock) Subscribe(id string) (<-chan dto.RunView, func(), error) {
	if _, ok := m.runs[id]; !ok {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "run not found")
	}
	ch := make(chan dto.RunView, len(m.updates))
	for _, u := range m.updates {
		ch <- u
	}
	close(ch)
	return ch, func() {}, nil
}

type exportMock struct {
	format string
}

func (m *exportMock) Render(ctx context.Context, id, format string) (*service.Rendered, error) {
	m.format = format
	return &service.Rendered{Filename: "timetable-" + id + "." + format, ContentType: "text/csv", Body: []byte("Block,Lunes\n")}, nil
}

func (m *exportMock) Publish(ctx context.Context, id string, req dto.ExportRequest) (*dto.ExportLink, error) {
	return &dto.ExportLink{Format: req.Format, Token: "tok", URL: "/api/v1/timetable/exports/tok"}, nil
}

func (m *exportMock) Download(ctx context.Context, token string) (*service.Rendered, error) {
	if token != "tok" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid export link signature")
	}
	return &service.Rendered{Filename: "timetable.pdf", ContentType: "application/pdf", Body: []byte("%PDF")}, nil
}

type catalogMock struct{}

func (catalogMock) Resolve(ctx context.Context, p *dto.CatalogPayload) (*catalog.Resolved, error) {
	return catalog.Build(catalog.Sample())
}

func newTimetableRouter(t *testing.T, tt *timetableMock, auth gin.HandlerFunc) (*gin.Engine, *exportMock) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	exports := &exportMock{}
	h := newTimetableHandler(tt, exports, catalogMock{}, nil, nil)
	r := gin.New()
	RegisterTimetableRoutes(r.Group("/api/v1"), h, auth)
	return r, exports
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NoError(t, json.Unmarshal(env.Data, dest))
}

func TestTimetableHandlerSolve(t *testing.T) {
	tt := &timetableMock{}
	r, _ := newTimetableRouter(t, tt, internalmiddleware.Anonymous())

	w := do(r, http.MethodPost, "/api/v1/timetable/solve", `{"seed":9,"options":{"maxGenerations":10}}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, tt.solveReq.Seed)
	assert.Equal(t, int64(9), *tt.solveReq.Seed)
	assert.Equal(t, 10, *tt.solveReq.Options.MaxGenerations)

	var resp dto.SolveResponse
	decodeData(t, w, &resp)
	assert.True(t, resp.Perfect)

	w = do(r, http.MethodPost, "/api/v1/timetable/solve", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, tt.solveReq.Catalog)

	w = do(r, http.MethodPost, "/api/v1/timetable/solve", `{"seed":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerSolveMapsErrors(t *testing.T) {
	tt := &timetableMock{solveErr: appErrors.Clone(appErrors.ErrInvalidCatalog, "invalid catalog: no rooms")}
	r, _ := newTimetableRouter(t, tt, internalmiddleware.Anonymous())

	w := do(r, http.MethodPost, "/api/v1/timetable/solve", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_CATALOG")
}

func TestTimetableHandlerCatalogAndEvaluate(t *testing.T) {
	r, _ := newTimetableRouter(t, &timetableMock{}, internalmiddleware.Anonymous())

	w := do(r, http.MethodGet, "/api/v1/timetable/catalog", "")
	require.Equal(t, http.StatusOK, w.Code)
	var cat catalogResponse
	decodeData(t, w, &cat)
	assert.Equal(t, 17, cat.TotalSessions)
	assert.Len(t, cat.Catalog.Rooms, 3)

	w = do(r, http.MethodPost, "/api/v1/timetable/evaluate", `{"assignments":[{"subjectId":"m1","teacherId":"t1","roomId":"a1","day":0,"slot":0}]}`)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestTimetableHandlerRuns(t *testing.T) {
	tt := &timetableMock{runs: map[string]dto.RunView{"run-1": {ID: "run-1", Status: string(models.RunRunning)}}}
	r, _ := newTimetableRouter(t, tt, internalmiddleware.Anonymous())

	w := do(r, http.MethodPost, "/api/v1/timetable/runs", `{}`)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "/api/v1/timetable/runs/run-1", w.Header().Get("Location"))

	w = do(r, http.MethodGet, "/api/v1/timetable/runs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = do(r, http.MethodGet, "/api/v1/timetable/runs/run-1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/v1/timetable/runs/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPost, "/api/v1/timetable/runs/run-1/cancel", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(models.RunCancelled))

	tt.cancelErr = appErrors.Clone(appErrors.ErrConflict, "run already finished")
	w = do(r, http.MethodPost, "/api/v1/timetable/runs/run-1/cancel", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTimetableHandlerExports(t *testing.T) {
	r, exports := newTimetableRouter(t, &timetableMock{}, internalmiddleware.Anonymous())

	w := do(r, http.MethodGet, "/api/v1/timetable/runs/run-1/export?format=csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", exports.format)
	assert.Equal(t, `attachment; filename="timetable-run-1.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Block,Lunes\n", w.Body.String())

	w = do(r, http.MethodPost, "/api/v1/timetable/runs/run-1/exports", `{"format":"xlsx"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var link dto.ExportLink
	decodeData(t, w, &link)
	assert.Equal(t, "xlsx", link.Format)

	w = do(r, http.MethodGet, "/api/v1/timetable/exports/tok", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	w = do(r, http.MethodGet, "/api/v1/timetable/exports/forged", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestTimetableHandlerRequiresAuth(t *testing.T) {
	deny := func(c *gin.Context) {
		c.AbortWithStatus(http.StatusUnauthorized)
	}
	viewer := func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "v", Role: models.RoleViewer})
		c.Next()
	}

	r, _ := newTimetableRouter(t, &timetableMock{}, deny)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/api/v1/timetable/solve", `{}`).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/v1/timetable/exports/forged", "").Code)

	r, _ = newTimetableRouter(t, &timetableMock{}, viewer)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/api/v1/timetable/solve", `{}`).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/timetable/catalog", "").Code)
}

func TestTimetableHandlerStreamRun(t *testing.T) {
	tt := &timetableMock{
		runs: map[string]dto.RunView{"run-1": {ID: "run-1", Status: string(models.RunRunning)}},
		updates: []dto.RunView{
			{ID: "run-1", Status: string(models.RunRunning), Progress: &dto.RunProgress{Generation: 10, BestPenalty: 35}},
			{ID: "run-1", Status: string(models.RunSucceeded)},
		},
	}
	r, _ := newTimetableRouter(t, tt, internalmiddleware.Anonymous())
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/timetable/runs/run-1/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var first, second dto.RunView
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))
	require.NotNil(t, first.Progress)
	assert.Equal(t, 35, first.Progress.BestPenalty)
	assert.Equal(t, string(models.RunSucceeded), second.Status)

	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))

	w := do(r, http.MethodGet, "/api/v1/timetable/runs/missing/ws", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
