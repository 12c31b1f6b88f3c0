package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/db"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/excel"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/pdf"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/repository"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/service"
)

// outbox records notifications. When failing is set every send returns an error.
type outbox struct {
	mu      sync.Mutex
	sent    []model.Notification
	failing bool
}

func (o *outbox) Send(_ context.Context, msg model.Notification) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failing {
		return errors.New("mail service down")
	}
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) find(template string) []model.Notification {
	o.mu.Lock()
	defer o.mu.Unlock()
	var found []model.Notification
	for _, msg := range o.sent {
		if msg.Template == template {
			found = append(found, msg)
		}
	}
	return found
}

type testEnv struct {
	Ctx          context.Context
	DB           *gorm.DB
	Accounts     *repository.AccountRepository
	Outbox       *outbox
	Projects     *service.ProjectService
	Packages     *service.PackageService
	Scheduling   *service.SchedulingService
	Availability *service.AvailabilityService
	Ledger       *service.LedgerService
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
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
	box := &outbox{}
	tx := repository.NewTransactor(conn)
	accounts := repository.NewAccountRepository(conn)
	packages := repository.NewPackageRepository(conn)
	availability := repository.NewAvailabilityRepository(conn)

	return testEnv{
		Ctx:          context.Background(),
		DB:           conn,
		Accounts:     accounts,
		Outbox:       box,
		Projects:     service.NewProjectService(tx, repository.NewProjectRepository(conn), accounts, service.NewConsequenceDispatcher(accounts, box, log), box, log),
		Packages:     service.NewPackageService(tx, packages, accounts, pdf.NewGenerator(), excel.NewGenerator(), box, log),
		Scheduling:   service.NewSchedulingService(tx, packages, accounts, box, log, 30),
		Availability: service.NewAvailabilityService(availability, packages, accounts, 30),
		Ledger:       service.NewLedgerService(tx, repository.NewSolicitudRepository(conn), accounts, box, log),
	}
}

func (e testEnv) client(t *testing.T, name string) model.Principal {
	t.Helper()
	c := &model.Client{ID: uuid.New(), Email: name + "@clients.test", Name: name}
	if err := e.Accounts.CreateClient(e.Ctx, c); err != nil {
		t.Fatalf("create client: %v", err)
	}
	return model.Principal{ID: c.ID, Role: model.RoleClient}
}

func (e testEnv) member(t *testing.T, name string) model.Principal {
	t.Helper()
	m := &model.Member{ID: uuid.New(), Email: name + "@members.test", Name: name}
	if err := e.Accounts.CreateMember(e.Ctx, m); err != nil {
		t.Fatalf("create member: %v", err)
	}
	return model.Principal{ID: m.ID, Role: model.RoleMember}
}

func admin() model.Principal {
	return model.Principal{ID: uuid.New(), Role: model.RoleAdmin}
}

func expectErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}
