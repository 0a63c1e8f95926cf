package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/mediguard/internal/handler/dashboard"
	"github.com/jwalitptl/mediguard/internal/handler/health"
	"github.com/jwalitptl/mediguard/internal/handler/medication"
	"github.com/jwalitptl/mediguard/internal/handler/prometheus"
	"github.com/jwalitptl/mediguard/internal/middleware"
	"github.com/jwalitptl/mediguard/internal/model"
	"github.com/jwalitptl/mediguard/internal/repository/file"
	"github.com/jwalitptl/mediguard/internal/service/catalog"
	"github.com/jwalitptl/mediguard/internal/service/compliance"
	"github.com/jwalitptl/mediguard/internal/service/notification"
	"github.com/jwalitptl/mediguard/internal/worker"
	"github.com/jwalitptl/mediguard/pkg/messaging/memory"
	"github.com/jwalitptl/mediguard/pkg/metrics"
)

type Response struct {
	Status  string          `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	RawData json.RawMessage `json:"data"`
}

func (r Response) IsSuccess() bool {
	return r.Status == "success" && r.Success
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type app struct {
	router    *Router
	engine    *compliance.Engine
	catalog   *catalog.Service
	scheduler *worker.Scheduler
	clock     *testClock
}

func newApp(t *testing.T, cfg RouterConfig) *app {
	t.Helper()

	m, registry := metrics.New("mediguard")
	repo := file.NewCatalogRepository(filepath.Join(t.TempDir(), "medications.json"))
	catalogSvc := catalog.NewService(repo, nil, m)
	require.NoError(t, catalogSvc.Load(context.Background()))

	clock := &testClock{t: time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC)}
	broker := memory.NewBroker(8)
	notifier := notification.NewService(notification.Config{Channel: "alerts"}, broker, nil, nil, m)
	engine := compliance.NewEngine(catalogSvc, compliance.AlwaysMissed,
		compliance.WithClock(clock.Now),
		compliance.WithNotifier(notifier),
		compliance.WithMetrics(m),
	)
	engine.RecomputeNextDose()

	cfg.Mode = gin.TestMode
	r, err := NewRouter(
		health.NewHandler(nil),
		prometheus.New(registry, "mediguard"),
		cfg,
		dashboard.NewHandler(engine, catalogSvc, broker, "alerts"),
		medication.NewHandler(catalogSvc, engine),
	)
	require.NoError(t, err)
	r.Setup()

	return &app{
		router:    r,
		engine:    engine,
		catalog:   catalogSvc,
		scheduler: worker.NewScheduler(engine, worker.SchedulerConfig{}, nil, m),
		clock:     clock,
	}
}

func (a *app) makeRequest(t *testing.T, method, path string, body interface{}) (int, Response) {
	t.Helper()
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.Engine().ServeHTTP(w, req)

	var resp Response
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w.Code, resp
}

func TestMonitoringFlow(t *testing.T) {
	a := newApp(t, RouterConfig{})
	ctx := context.Background()

	// 07:00, Aspirin is due at 08:00
	_, resp := a.makeRequest(t, http.MethodGet, "/api/v1/dashboard", nil)
	require.True(t, resp.IsSuccess())
	var d model.Dashboard
	require.NoError(t, json.Unmarshal(resp.RawData, &d))
	require.NotNil(t, d.State.NextDoseTime)
	assert.Equal(t, "08:00", d.State.NextDoseTime.Format(model.ClockLayout))
	assert.Equal(t, model.StatusNormal, d.State.Status)
	assert.Len(t, d.Meds, 5)

	assert.False(t, a.scheduler.Tick(ctx))

	a.clock.Set(time.Date(2024, 3, 10, 8, 0, 2, 0, time.UTC))
	assert.True(t, a.scheduler.Tick(ctx))

	_, resp = a.makeRequest(t, http.MethodGet, "/api/v1/dashboard", nil)
	require.NoError(t, json.Unmarshal(resp.RawData, &d))
	assert.Equal(t, model.StatusAlert, d.State.Status)
	require.Len(t, d.State.Alerts, 1)
	assert.Equal(t, model.TierFamily, d.State.Alerts[0].Level)
	assert.Equal(t, "Aspirin", *d.State.CurrentMed)
	require.NotNil(t, d.State.NextDoseTime)
	assert.Equal(t, "13:00", d.State.NextDoseTime.Format(model.ClockLayout))

	code, resp := a.makeRequest(t, http.MethodPut, "/api/v1/alerts/position/0/read", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"acknowledged":true,"status":"normal"}`, string(resp.RawData))

	code, resp = a.makeRequest(t, http.MethodPost, "/api/v1/emergency", nil)
	assert.Equal(t, http.StatusCreated, code)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, model.StatusEmergency, a.engine.Status())
}

func TestCatalogEditRecomputesNextDose(t *testing.T) {
	a := newApp(t, RouterConfig{})

	code, resp := a.makeRequest(t, http.MethodPost, "/api/v1/medications", map[string]interface{}{
		"name":     "Vitamin D",
		"dose":     "1000 IU",
		"schedule": "07:30",
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	assert.Equal(t, 7, a.engine.NextDose().Hour())
	assert.Equal(t, 30, a.engine.NextDose().Minute())

	code, _ = a.makeRequest(t, http.MethodDelete, "/api/v1/medications/Vitamin%20D", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 8, a.engine.NextDose().Hour())

	code, resp = a.makeRequest(t, http.MethodDelete, "/api/v1/medications/Vitamin%20D", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, resp.Success)
}

func TestHealthAndMetrics(t *testing.T) {
	a := newApp(t, RouterConfig{MetricsPath: "/metrics"})

	w := httptest.NewRecorder()
	a.router.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	a.makeRequest(t, http.MethodGet, "/api/v1/medications", nil)
	a.engine.TriggerEmergency(context.Background())

	w = httptest.NewRecorder()
	a.router.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `mediguard_http_requests_total{method="GET",path="/api/v1/medications",status="200"} 1`)
	assert.Contains(t, body, `mediguard_compliance_alerts_raised_total{tier="emergency"} 1`)
	assert.Contains(t, body, `mediguard_catalog_medications 5`)
	assert.Contains(t, body, `mediguard_notification_sent_total{channel="broker",status="success"} 1`)
}

func TestRateLimit(t *testing.T) {
	a := newApp(t, RouterConfig{
		RateLimitEnabled: true,
		RateLimit:        middleware.RateLimiterConfig{RPS: 0.001, Burst: 3},
	})

	for i := 0; i < 3; i++ {
		code, _ := a.makeRequest(t, http.MethodGet, "/api/v1/alerts", nil)
		require.Equal(t, http.StatusOK, code, fmt.Sprintf("request %d", i))
	}
	code, resp := a.makeRequest(t, http.MethodGet, "/api/v1/alerts", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "rate limit exceeded", resp.Message)

	// health stays outside the limited group
	w := httptest.NewRecorder()
	a.router.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
