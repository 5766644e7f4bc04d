package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ledgerbook/internal/config"
	"ledgerbook/internal/logger"
	"ledgerbook/internal/models"
	"ledgerbook/internal/notify"
	"ledgerbook/internal/server"
	"ledgerbook/internal/services"
	"ledgerbook/internal/testutil"
)

func TestPublishReport_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/v1/pipeline/reports/publish" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("X-API-Key") != "test-key" {
			t.Errorf("missing or wrong API key header")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"report": map[string]any{
				"id":             "rep-1",
				"total_income":   "1500.00",
				"total_expenses": "400",
				"balance":        "1100",
				"income_by_task": []map[string]any{
					{"task_id": "task-1", "task_name": "Construction", "total": "1500", "receipt_book_count": 2},
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "test-key", srv.Client())
	report, err := c.PublishReport(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.ID != "rep-1" {
		t.Errorf("expected id rep-1, got %s", report.ID)
	}
	if report.Balance.String() != "1100" {
		t.Errorf("expected balance 1100, got %s", report.Balance)
	}
	if len(report.Lines) != 1 || report.Lines[0].ReceiptBookCount != 2 {
		t.Errorf("unexpected breakdown: %+v", report.Lines)
	}
}

func TestPublishReport_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "INVALID_API_KEY", "kind": "authorization", "message": "Invalid API key"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad-key", srv.Client())
	_, err := c.PublishReport(context.Background())

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized || statusErr.Code != "INVALID_API_KEY" {
		t.Errorf("unexpected status error: %+v", statusErr)
	}
}

func TestLatestReport_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", srv.Client())
	_, err := c.LatestReport(context.Background())
	if err == nil || !strings.Contains(err.Error(), "unexpected status 502") {
		t.Errorf("expected status 502 error, got %v", err)
	}
}

func TestLatestReport_MissingReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", srv.Client())
	if _, err := c.LatestReport(context.Background()); err == nil {
		t.Error("expected error for missing report")
	}
}

func TestClientAgainstRouter(t *testing.T) {
	logger.Init("test")
	config.Set(&config.Config{Env: "test", JWTSecret: "pipeline-test", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})

	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	manager := testutil.CreateTestUserWithUsername(t, db, "mira", models.RoleManager)
	task := testutil.CreateTestTask(t, db)
	book := testutil.CreateTestBook(t, db, task.ID, manager.ID, 1, 50)
	testutil.CreateTestReceipt(t, db, book, 1, "75.50", manager.ID)

	router := server.NewRouter(
		server.NewServices(db, services.DefaultLoginPolicy(), notify.Noop{}),
		server.Options{PipelineAPIKey: "secret", RequestTimeout: 5 * time.Second},
	)
	srv := httptest.NewServer(router)
	defer srv.Close()

	if _, err := NewClient(srv.URL, "", srv.Client()).LatestReport(context.Background()); err == nil {
		t.Fatal("expected not found before publishing")
	}

	var statusErr *StatusError
	_, err := NewClient(srv.URL, "wrong", srv.Client()).PublishReport(context.Background())
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong key, got %v", err)
	}

	c := NewClient(srv.URL, "secret", srv.Client())
	published, err := c.PublishReport(context.Background())
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if published.TotalIncome.String() != "75.5" {
		t.Errorf("expected income 75.5, got %s", published.TotalIncome)
	}

	latest, err := c.LatestReport(context.Background())
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if latest.ID != published.ID {
		t.Errorf("expected latest %s, got %s", published.ID, latest.ID)
	}
}
