package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/auth"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/db"
	httphandler "github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/http"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/http/middleware"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/notify"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/repository"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/service"
)

const testSecret = "handler-test-secret"

type api struct {
	router   *gin.Engine
	tokens   *auth.Parser
	accounts *repository.AccountRepository
}

func newAPI(t *testing.T) api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := filepath.Join(t.TempDir(), "engagement.db") + "?_foreign_keys=on&_busy_timeout=5000"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	log := zerolog.Nop()
	notifier := notify.NewLogSender(log)
	tx := repository.NewTransactor(conn)
	accounts := repository.NewAccountRepository(conn)
	packages := repository.NewPackageRepository(conn)
	services := httphandler.Services{
		Projects:     service.NewProjectService(tx, repository.NewProjectRepository(conn), accounts, service.NewConsequenceDispatcher(accounts, notifier, log), notifier, log),
		Packages:     service.NewPackageService(tx, packages, accounts, nil, nil, notifier, log),
		Scheduling:   service.NewSchedulingService(tx, packages, accounts, notifier, log, 30),
		Availability: service.NewAvailabilityService(repository.NewAvailabilityRepository(conn), packages, accounts, 30),
		Ledger:       service.NewLedgerService(tx, repository.NewSolicitudRepository(conn), accounts, notifier, log),
	}

	tokens := auth.NewParser(testSecret)
	router := httphandler.NewRouter(httphandler.NewHandler(services, log), middleware.Auth(tokens), "test", []string{"*"})
	return api{router: router, tokens: tokens, accounts: accounts}
}

func (a api) client(t *testing.T) model.Principal {
	t.Helper()
	c := &model.Client{ID: uuid.New(), Email: "client@example.test"}
	if err := a.accounts.CreateClient(t.Context(), c); err != nil {
		t.Fatalf("create client: %v", err)
	}
	return model.Principal{ID: c.ID, Role: model.RoleClient}
}

func (a api) member(t *testing.T) model.Principal {
	t.Helper()
	m := &model.Member{ID: uuid.New(), Email: uuid.NewString() + "@example.test"}
	if err := a.accounts.CreateMember(t.Context(), m); err != nil {
		t.Fatalf("create member: %v", err)
	}
	return model.Principal{ID: m.ID, Role: model.RoleMember}
}

func (a api) do(t *testing.T, principal *model.Principal, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if principal != nil {
		token, err := a.tokens.Issue(*principal, time.Minute)
		if err != nil {
			t.Fatalf("issue token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestHealthzIsPublic(t *testing.T) {
	a := newAPI(t)
	if rec := a.do(t, nil, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := a.do(t, nil, http.MethodPost, "/projects", map[string]any{"title": "x"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}
}

func TestProjectStatusCodes(t *testing.T) {
	a := newAPI(t)
	client := a.client(t)
	member := a.member(t)

	rec := a.do(t, &client, http.MethodPost, "/projects", map[string]any{"title": "Internal tool", "visibility": "private"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var project model.Project
	decode(t, rec, &project)
	if project.Status != model.ProjectDraft {
		t.Fatalf("unexpected project %+v", project)
	}
	path := "/projects/" + project.ID.String()

	cases := []struct {
		name      string
		principal *model.Principal
		method    string
		path      string
		body      any
		want      int
	}{
		{"stranger reads private project", &member, http.MethodGet, path, nil, http.StatusForbidden},
		{"owner reads project", &client, http.MethodGet, path, nil, http.StatusOK},
		{"malformed id", &client, http.MethodGet, "/projects/not-a-uuid", nil, http.StatusBadRequest},
		{"missing project", &client, http.MethodGet, "/projects/" + uuid.NewString(), nil, http.StatusNotFound},
		{"unknown status", &client, http.MethodPost, path + "/transitions", map[string]any{"status": "shipped"}, http.StatusBadRequest},
		{"graph violation", &client, http.MethodPost, path + "/transitions", map[string]any{"status": "published"}, http.StatusConflict},
		{"free private move", &client, http.MethodPost, path + "/transitions", map[string]any{"status": "testing"}, http.StatusOK},
		{"missing body field", &client, http.MethodPost, path + "/close", map[string]any{}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := a.do(t, tc.principal, tc.method, tc.path, tc.body); rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSessionBookingOverHTTP(t *testing.T) {
	a := newAPI(t)
	client := a.client(t)
	member := a.member(t)

	rec := a.do(t, &client, http.MethodPost, "/packages", map[string]any{
		"member_id":   member.ID,
		"total_hours": 3,
		"windows":     []map[string]any{{"day_of_week": 1, "start": "09:00", "end": "11:00"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var purchase model.PackagePurchase
	decode(t, rec, &purchase)
	path := "/packages/" + purchase.ID.String()

	if rec := a.do(t, &member, http.MethodPost, path+"/respond", map[string]any{"decision": "approve"}); rec.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", rec.Code, rec.Body.String())
	}

	slot := map[string]any{"date": "2026-10-19", "start": "09:00", "end": "10:30"}
	if rec := a.do(t, &client, http.MethodPost, path+"/sessions", slot); rec.Code != http.StatusCreated {
		t.Fatalf("book: %d %s", rec.Code, rec.Body.String())
	}
	overlap := map[string]any{"date": "2026-10-19", "start": "10:00", "end": "10:30"}
	if rec := a.do(t, &client, http.MethodPost, path+"/sessions", overlap); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for an overlapping booking, got %d", rec.Code)
	}
	bad := map[string]any{"date": "2026-10-19", "start": "9am", "end": "10:30"}
	if rec := a.do(t, &client, http.MethodPost, path+"/sessions", bad); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed clock, got %d", rec.Code)
	}

	rec = a.do(t, &member, http.MethodGet, path+"/slots?date=2026-10-19", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("slots: %d %s", rec.Code, rec.Body.String())
	}
	var slots model.SlotsResult
	decode(t, rec, &slots)
	if slots.RemainingHours == nil || *slots.RemainingHours != 1.5 || len(slots.Slots) != 4 {
		t.Fatalf("unexpected slots %+v", slots)
	}
}
