package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/contentops/scheduler/content"
	contentDomain "github.com/contentops/scheduler/content/domain"
	contentRepository "github.com/contentops/scheduler/content/repository"
	"github.com/contentops/scheduler/pkg/clock"
	"github.com/contentops/scheduler/scheduling/application"
	schedRepository "github.com/contentops/scheduler/scheduling/repository"
	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupScheduleApp(t *testing.T) (*fiber.App, *clock.Fixed) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	ctx := context.Background()
	schedRepo := schedRepository.NewSchedulingGormRepository(db)
	if err := schedRepo.Init(ctx); err != nil {
		t.Fatalf("failed to init scheduling repo: %v", err)
	}
	contentRepo := contentRepository.NewContentGormRepository(db)
	if err := contentRepo.Init(ctx); err != nil {
		t.Fatalf("failed to init content repo: %v", err)
	}
	if err := contentRepo.CreateBanner(ctx, contentDomain.Banner{ID: "banner-1", Title: "sale"}); err != nil {
		t.Fatalf("failed to seed banner: %v", err)
	}

	clk := clock.NewFixed(time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC))
	scheduler := application.NewSchedulingService(schedRepo, contentRepo, content.NewRegistry(contentRepo, clk), nil, clk)
	templates := application.NewTemplateService(schedRepo, scheduler, clk)
	stats := application.NewStatsService(schedRepo, clk)

	app := fiber.New()
	NewScheduleHandler(scheduler, templates, stats).Register(app)
	return app, clk
}

func jsonRequest(t *testing.T, method, path string, payload any) *http.Request {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("failed to encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor", "admin")
	return req
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestScheduleLifecycleEndpoints(t *testing.T) {
	app, clk := setupScheduleApp(t)

	createResp, err := app.Test(jsonRequest(t, http.MethodPost, "/schedules/", map[string]any{
		"content_type":   "banner",
		"content_id":     "banner-1",
		"scheduled_time": clk.Now().Add(time.Hour).Format(time.RFC3339),
	}))
	if err != nil {
		t.Fatalf("create app.Test() error: %v", err)
	}
	if createResp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected create status %d", createResp.StatusCode)
	}
	var created struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		CreatedBy string `json:"created_by"`
	}
	decodeBody(t, createResp, &created)
	if created.Status != "pending" {
		t.Fatalf("unexpected status %q", created.Status)
	}
	if created.CreatedBy != "admin" {
		t.Fatalf("unexpected created_by %q", created.CreatedBy)
	}

	execResp, err := app.Test(jsonRequest(t, http.MethodPost, "/schedules/"+created.ID+"/execute?force=true", nil))
	if err != nil {
		t.Fatalf("execute app.Test() error: %v", err)
	}
	var executed struct {
		Executed bool   `json:"executed"`
		Message  string `json:"message"`
	}
	decodeBody(t, execResp, &executed)
	if !executed.Executed {
		t.Fatalf("execute failed: %s", executed.Message)
	}

	// Cancelling a published schedule is an invalid transition.
	cancelResp, err := app.Test(jsonRequest(t, http.MethodPost, "/schedules/"+created.ID+"/cancel", nil))
	if err != nil {
		t.Fatalf("cancel app.Test() error: %v", err)
	}
	if cancelResp.StatusCode != http.StatusConflict {
		t.Fatalf("unexpected cancel status %d", cancelResp.StatusCode)
	}
	var conflict struct {
		Code string `json:"code"`
	}
	decodeBody(t, cancelResp, &conflict)
	if conflict.Code != "INVALID_STATE_ERROR" {
		t.Fatalf("unexpected error code %q", conflict.Code)
	}

	historyResp, err := app.Test(jsonRequest(t, http.MethodGet, "/schedules/"+created.ID+"/history", nil))
	if err != nil {
		t.Fatalf("history app.Test() error: %v", err)
	}
	var history []map[string]any
	decodeBody(t, historyResp, &history)
	if len(history) != 2 {
		t.Fatalf("expected 2 history rows, got %d", len(history))
	}
}

func TestScheduleValidationErrors(t *testing.T) {
	app, clk := setupScheduleApp(t)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/schedules/", map[string]any{
		"content_type":   "banner",
		"content_id":     "ghost",
		"scheduled_time": clk.Now().Add(time.Hour).Format(time.RFC3339),
	}))
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	var body struct {
		Code string `json:"code"`
	}
	decodeBody(t, resp, &body)
	if body.Code != "VALIDATION_ERROR" {
		t.Fatalf("unexpected error code %q", body.Code)
	}
}

func TestScheduleNotFound(t *testing.T) {
	app, _ := setupScheduleApp(t)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/schedules/missing", nil))
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTemplateApplyEndpoint(t *testing.T) {
	app, clk := setupScheduleApp(t)

	createResp, err := app.Test(jsonRequest(t, http.MethodPost, "/templates/", map[string]any{
		"name":       "daily-banner",
		"recurrence": "daily",
	}))
	if err != nil {
		t.Fatalf("create template app.Test() error: %v", err)
	}
	if createResp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected template status %d", createResp.StatusCode)
	}
	var tpl struct {
		ID string `json:"id"`
	}
	decodeBody(t, createResp, &tpl)

	applyResp, err := app.Test(jsonRequest(t, http.MethodPost, "/templates/"+tpl.ID+"/apply", map[string]any{
		"content_type":   "banner",
		"content_id":     "banner-1",
		"scheduled_time": clk.Now().Add(time.Hour).Format(time.RFC3339),
	}))
	if err != nil {
		t.Fatalf("apply app.Test() error: %v", err)
	}
	if applyResp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected apply status %d", applyResp.StatusCode)
	}
	var sched struct {
		Recurrence string `json:"recurrence"`
	}
	decodeBody(t, applyResp, &sched)
	if sched.Recurrence != "daily" {
		t.Fatalf("unexpected recurrence %q", sched.Recurrence)
	}

	getResp, err := app.Test(jsonRequest(t, http.MethodGet, "/templates/"+tpl.ID, nil))
	if err != nil {
		t.Fatalf("get template app.Test() error: %v", err)
	}
	var current struct {
		UsageCount int `json:"usage_count"`
	}
	decodeBody(t, getResp, &current)
	if current.UsageCount != 1 {
		t.Fatalf("unexpected usage_count %d", current.UsageCount)
	}
}

func TestTemplateUpdateEndpoint(t *testing.T) {
	app, _ := setupScheduleApp(t)

	createResp, err := app.Test(jsonRequest(t, http.MethodPost, "/templates/", map[string]any{
		"name":       "weekly-banner",
		"recurrence": "weekly",
	}))
	if err != nil {
		t.Fatalf("create template app.Test() error: %v", err)
	}
	if createResp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected template status %d", createResp.StatusCode)
	}
	var tpl struct {
		ID string `json:"id"`
	}
	decodeBody(t, createResp, &tpl)

	updateResp, err := app.Test(jsonRequest(t, http.MethodPut, "/templates/"+tpl.ID, map[string]any{
		"name":       "weekly-banner",
		"recurrence": "daily",
		"priority":   5,
		"is_active":  true,
	}))
	if err != nil {
		t.Fatalf("update template app.Test() error: %v", err)
	}
	if updateResp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected update status %d", updateResp.StatusCode)
	}
	var updated struct {
		Recurrence string `json:"recurrence"`
		Priority   int    `json:"priority"`
	}
	decodeBody(t, updateResp, &updated)
	if updated.Recurrence != "daily" {
		t.Fatalf("unexpected recurrence %q", updated.Recurrence)
	}
	if updated.Priority != 5 {
		t.Fatalf("unexpected priority %d", updated.Priority)
	}

	missingResp, err := app.Test(jsonRequest(t, http.MethodPut, "/templates/nope", map[string]any{
		"name": "ghost",
	}))
	if err != nil {
		t.Fatalf("update missing template app.Test() error: %v", err)
	}
	if missingResp.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status %d", missingResp.StatusCode)
	}
	missingResp.Body.Close()
}

func TestCalendarEndpointValidation(t *testing.T) {
	app, _ := setupScheduleApp(t)

	for _, path := range []string{"/schedules/calendar", "/schedules/calendar?year=2026&month=13"} {
		resp, err := app.Test(jsonRequest(t, http.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("app.Test() error (%s): %v", path, err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("unexpected status %d (%s)", resp.StatusCode, path)
		}
		resp.Body.Close()
	}

	resp, err := app.Test(jsonRequest(t, http.MethodGet, fmt.Sprintf("/schedules/calendar?year=%d&month=%d", 2026, 6), nil))
	if err != nil {
		t.Fatalf("app.Test() error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	resp.Body.Close()
}
