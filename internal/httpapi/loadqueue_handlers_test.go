package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"guarita-loadqueue/internal/engine"
	"guarita-loadqueue/internal/models"
	"guarita-loadqueue/internal/repository"
	"guarita-loadqueue/internal/snapshot"
	"guarita-loadqueue/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var brt = time.FixedZone("BRT", -3*3600)

type mockJobWriter struct {
	mock.Mock
}

func (m *mockJobWriter) SaveJob(ctx context.Context, job models.LoadingJob) error {
	return m.Called(ctx, job).Error(0)
}

type countingTrigger struct {
	calls int
}

func (c *countingTrigger) TriggerNow() { c.calls++ }

type fakeKV struct {
	data map[string]string
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", store.ErrCacheMiss
	}
	return v, nil
}

func (f *fakeKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	f.data[key] = value
	return nil
}

func (f *fakeKV) Update(ctx context.Context, key string, ttl time.Duration, fn store.UpdateFunc) (string, error) {
	current, found := f.data[key]
	next, err := fn(current, found)
	if err != nil {
		return "", err
	}
	f.data[key] = next
	return next, nil
}

type fixture struct {
	router  *Router
	store   *snapshot.Store
	writer  *mockJobWriter
	trigger *countingTrigger
}

func newFixture(t *testing.T, loaded bool) *fixture {
	t.Helper()
	now := time.Date(2026, 10, 16, 14, 5, 0, 0, brt)
	entry := time.Date(2026, 10, 16, 13, 0, 0, 0, brt)

	snaps := snapshot.NewStore()
	if loaded {
		snaps.Swap(snapshot.Data{
			Jobs: []models.LoadingJob{
				{ID: "q1", Product: models.Product{Kind: models.ProductPluma}, Status: models.StatusQueued, QueuedAt: now.Add(-time.Hour)},
				{ID: "q2", Product: models.Product{Kind: models.ProductPluma}, Status: models.StatusQueued, QueuedAt: now.Add(-30 * time.Minute)},
				{ID: "l1", Product: models.Product{Kind: models.ProductCaroco}, Status: models.StatusLoading, QueuedAt: now.Add(-2 * time.Hour), EntryAt: &entry},
			},
			Trips: []models.VehicleTrip{
				{Plate: "ABC1234", Driver: "Joao", Date: "2026-10-16", EntryTime: "13:40", RollCount: 40},
				{Plate: "ABC1234", Driver: "Joao", Date: "2026-10-16", EntryTime: "08:00", ExitTime: "08:30", RollCount: 60},
				{Plate: "XYZ9876", Driver: "Maria", Date: "2026-10-02", EntryTime: "07:00", ExitTime: "07:30", RollCount: 30},
			},
		}, now)
	}

	e := engine.NewEngine(snaps, brt, zap.NewNop(),
		engine.WithClock(func() time.Time { return now }),
		engine.WithRankingLimit(1),
	)
	writer := &mockJobWriter{}
	trigger := &countingTrigger{}
	prefs := store.NewPreferenceStore(&fakeKV{data: map[string]string{}}, "guarita", zap.NewNop())

	r := NewRouter(zap.NewNop())
	r.RegisterLoadQueueRoutes(NewLoadQueueHandler(e, writer, trigger, prefs, zap.NewNop()))
	return &fixture{router: r, store: snaps, writer: writer, trigger: trigger}
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) Result[T] {
	t.Helper()
	var res Result[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res), w.Body.String())
	return res
}

func TestGetQueue_WrapsResult(t *testing.T) {
	f := newFixture(t, true)

	w := f.do(http.MethodGet, "/api/v1/queue?product=pluma", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"code":2000`)

	res := decode[[]engine.QueuedJobView](t, w)
	require.Len(t, res.Result, 2)
	assert.Equal(t, "q1", res.Result[0].Job.ID)
	assert.Equal(t, "first in line", res.Result[0].Label)
	assert.False(t, res.Stale)

	w = f.do(http.MethodPost, "/api/v1/queue", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestQueries_StaleFlagAndUnavailable(t *testing.T) {
	f := newFixture(t, false)
	w := f.do(http.MethodGet, "/api/v1/active", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"code":-1`)

	f = newFixture(t, true)
	f.store.MarkStale(errors.New("store down"), time.Now())
	w = f.do(http.MethodGet, "/api/v1/dwell-alerts", "")
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[[]engine.DwellAlert](t, w)
	assert.True(t, res.Stale)
	assert.Contains(t, res.Message, "store down")
	assert.Contains(t, res.Message, "1 failed refresh")
	require.Len(t, res.Result, 1)
	assert.Equal(t, 25, res.Result[0].Elapsed)

	w = f.do(http.MethodGet, "/api/v1/status", "")
	assert.Contains(t, w.Body.String(), `"consecutive_failures":1`)
}

func TestGetRanking(t *testing.T) {
	f := newFixture(t, true)

	w := f.do(http.MethodGet, "/api/v1/ranking?window=day&by=rolls", "")
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[[]map[string]any](t, w)
	require.Len(t, res.Result, 1)
	assert.Equal(t, float64(2), res.Result[0]["trip_count"])
	assert.Equal(t, float64(100), res.Result[0]["roll_count"])

	w = f.do(http.MethodGet, "/api/v1/ranking?window=month&date=2026-10&by=trips", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w).Result, 1, "configured board size")

	w = f.do(http.MethodGet, "/api/v1/ranking?window=month&date=2026-10&by=trips&limit=20", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w).Result, 2, "limit can grow the board")

	w = f.do(http.MethodGet, "/api/v1/ranking?limit=-3", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(http.MethodGet, "/api/v1/ranking?limit=ten", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/api/v1/ranking?window=week", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(http.MethodGet, "/api/v1/ranking?by=weight", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/api/v1/time-report?window=month&date=2026-10", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestTransition_PersistsAndTriggers(t *testing.T) {
	f := newFixture(t, true)
	f.writer.On("SaveJob", mock.Anything, mock.MatchedBy(func(j models.LoadingJob) bool {
		return j.ID == "l1" && j.Status == models.StatusCompleted && j.ExitAt != nil
	})).Return(nil)

	w := f.do(http.MethodPost, "/api/v1/jobs/l1/transition",
		`{"target":"completed","exit_date":"2026-10-16","exit_time":"14:00","invoice_number":"NF-1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[models.LoadingJob](t, w)
	assert.Equal(t, models.StatusCompleted, res.Result.Status)
	assert.Equal(t, "NF-1", res.Result.InvoiceNumber)
	assert.Equal(t, 1, f.trigger.calls)
	f.writer.AssertExpectations(t)
}

func TestRequestTransition_Rejections(t *testing.T) {
	f := newFixture(t, true)

	w := f.do(http.MethodPost, "/api/v1/jobs/l1/transition", `{"target":"completed","exit_date":"2026-10-16"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "job l1: loading -> completed: exit time required", decode[any](t, w).Message)

	w = f.do(http.MethodPost, "/api/v1/jobs/nope/transition", `{"target":"loading"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodPost, "/api/v1/jobs/l1/transition", `{"target":"shipped"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/v1/jobs/l1/transition", `{bad json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/v1/jobs/l1/transition", `{"target":"completed","exit_date":"2026-10-16","exit_tme":"14:00"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "exit_tme")

	w = f.do(http.MethodPost, "/api/v1/jobs/l1/transition", `{"target":"loaded","bales":8`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "truncated")

	w = f.do(http.MethodPost, "/api/v1/jobs/l1/transition", `{"target":"loaded","bales":8} {"target":"completed"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/v1/jobs/l1/transition", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "empty")

	w = f.do(http.MethodPost, "/api/v1/jobs/l1/cancel", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	f.writer.AssertNotCalled(t, "SaveJob", mock.Anything, mock.Anything)
	assert.Zero(t, f.trigger.calls)
}

func TestRequestTransition_StoreFailure(t *testing.T) {
	f := newFixture(t, true)
	f.writer.On("SaveJob", mock.Anything, mock.Anything).Return(repository.ErrJobNotFound).Once()
	f.writer.On("SaveJob", mock.Anything, mock.Anything).Return(errors.New("timeout")).Once()

	body := `{"target":"loaded","bales":80}`
	w := f.do(http.MethodPost, "/api/v1/jobs/l1/transition", body)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(http.MethodPost, "/api/v1/jobs/l1/transition", body)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Zero(t, f.trigger.calls)
}

func TestPreferences(t *testing.T) {
	f := newFixture(t, true)

	w := f.do(http.MethodPost, "/api/v1/preferences/drivers", `{"value":"Joao"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/v1/preferences/drivers", "")
	res := decode[[]string](t, w)
	assert.Equal(t, []string{"Joao"}, res.Result)

	w = f.do(http.MethodGet, "/api/v1/preferences/secrets", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodDelete, "/api/v1/preferences/drivers", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
