package ledger_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/ledger"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
)

func withStatuses(statuses ...model.AsignacionStatus) []model.Asignacion {
	out := make([]model.Asignacion, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, model.Asignacion{ID: uuid.New(), MemberID: uuid.New(), Status: s, AssignedHours: 2})
	}
	return out
}

func TestAggregate(t *testing.T) {
	cases := []struct {
		name     string
		statuses []model.AsignacionStatus
		want     model.SolicitudStatus
	}{
		{"empty", nil, model.SolicitudPendiente},
		{"all pending", []model.AsignacionStatus{model.AsignacionPendiente, model.AsignacionPendiente}, model.SolicitudPendiente},
		{"all rejected", []model.AsignacionStatus{model.AsignacionRechazado, model.AsignacionRechazado}, model.SolicitudCancelado},
		{"pending and approved", []model.AsignacionStatus{model.AsignacionPendiente, model.AsignacionAprobado}, model.SolicitudParcial},
		{"pending and working", []model.AsignacionStatus{model.AsignacionPendiente, model.AsignacionEnProgreso}, model.SolicitudParcial},
		{"pending and rejected", []model.AsignacionStatus{model.AsignacionPendiente, model.AsignacionRechazado}, model.SolicitudPendiente},
		{"resolved with active", []model.AsignacionStatus{model.AsignacionAprobado, model.AsignacionRechazado}, model.SolicitudEnProgreso},
		{"resolved pre-confirmed", []model.AsignacionStatus{model.AsignacionPreConfirmado, model.AsignacionCompletado}, model.SolicitudEnProgreso},
		{"resolved none active", []model.AsignacionStatus{model.AsignacionCompletado, model.AsignacionRechazado}, model.SolicitudCompletado},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ledger.Aggregate(withStatuses(tc.statuses...)); got != tc.want {
				t.Fatalf("Aggregate() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestBudgetExcludesRejected(t *testing.T) {
	assignments := []model.Asignacion{
		{AssignedHours: 6, Status: model.AsignacionAprobado},
		{AssignedHours: 5, Status: model.AsignacionRechazado},
	}
	if got := ledger.Unallocated(10, assignments); got != 4 {
		t.Fatalf("Unallocated() = %v, want 4", got)
	}
	if ledger.Fits(5, 10, assignments) {
		t.Fatalf("5h should not fit into 4h")
	}
	if !ledger.Fits(4, 10, assignments) {
		t.Fatalf("4h should fit exactly")
	}
}

func TestHasLiveMember(t *testing.T) {
	member := uuid.New()
	assignments := []model.Asignacion{{MemberID: member, Status: model.AsignacionRechazado}}
	if ledger.HasLiveMember(assignments, member) {
		t.Fatalf("rejected assignment must not count")
	}
	assignments = append(assignments, model.Asignacion{MemberID: member, Status: model.AsignacionPendiente})
	if !ledger.HasLiveMember(assignments, member) {
		t.Fatalf("pending assignment must count")
	}
}

func TestAfterConfirmation(t *testing.T) {
	done := []model.Asignacion{
		{Status: model.AsignacionCompletado, AssignedHours: 6, ConsumedHours: 6},
		{Status: model.AsignacionRechazado, AssignedHours: 4},
	}
	if got := ledger.AfterConfirmation(6, done); got != model.SolicitudCompletado {
		t.Fatalf("got %s, want completado", got)
	}
	if got := ledger.AfterConfirmation(10, done); got != model.SolicitudEnProgreso {
		t.Fatalf("unconsumed budget: got %s, want en_progreso", got)
	}
	open := append(done, model.Asignacion{Status: model.AsignacionEnProgreso})
	if got := ledger.AfterConfirmation(6, open); got != model.SolicitudEnProgreso {
		t.Fatalf("open assignment: got %s, want en_progreso", got)
	}
}

func TestAfterProgress(t *testing.T) {
	if got := ledger.AfterProgress(model.SolicitudParcial); got != model.SolicitudEnProgreso {
		t.Fatalf("parcial: got %s", got)
	}
	if got := ledger.AfterProgress(model.SolicitudCompletado); got != model.SolicitudCompletado {
		t.Fatalf("completado must stay: got %s", got)
	}
}

func TestCloseOutRemaining(t *testing.T) {
	a := model.Asignacion{AssignedHours: 8, ConsumedHours: 3}
	if released := ledger.CloseOutRemaining(&a); released != 5 {
		t.Fatalf("released = %v, want 5", released)
	}
	if a.ConsumedHours != a.AssignedHours {
		t.Fatalf("consumed = %v, want %v", a.ConsumedHours, a.AssignedHours)
	}
	if !ledger.ExceedsAllotment(a, 0.5) {
		t.Fatalf("closed-out assignment has no allotment left")
	}
}
