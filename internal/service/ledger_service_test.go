package service_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/service"
)

func solicitudStatus(t *testing.T, env testEnv, principal model.Principal, id uuid.UUID) model.SolicitudStatus {
	t.Helper()
	detail, err := env.Ledger.GetSolicitud(env.Ctx, principal, id)
	if err != nil {
		t.Fatalf("get solicitud: %v", err)
	}
	return detail.Solicitud.Status
}

func respond(t *testing.T, env testEnv, member model.Principal, id uuid.UUID, approve bool) *model.Asignacion {
	t.Helper()
	a, err := env.Ledger.RespondAssignment(env.Ctx, service.RespondAssignmentInput{Principal: member, AsignacionID: id, Approve: approve, Reason: "busy that month"})
	if err != nil {
		t.Fatalf("respond assignment: %v", err)
	}
	return a
}

func TestAssignmentsRespectBudget(t *testing.T) {
	env := newTestEnv(t)
	client := env.client(t, "ana")
	first, second := env.member(t, "bea"), env.member(t, "carl")

	_, err := env.Ledger.CreateSolicitud(env.Ctx, service.CreateSolicitudInput{Principal: first, TotalHours: 10})
	expectErr(t, err, service.ErrPermissionDenied)

	detail, err := env.Ledger.CreateSolicitud(env.Ctx, service.CreateSolicitudInput{
		Principal:   client,
		TotalHours:  10,
		Assignments: []service.AssignmentInput{{MemberID: first.ID, Hours: 6, Task: "backend"}},
	})
	if err != nil {
		t.Fatalf("create solicitud: %v", err)
	}
	if detail.Solicitud.Status != model.SolicitudPendiente || len(detail.Asignaciones) != 1 {
		t.Fatalf("unexpected solicitud %+v", detail)
	}
	id := detail.Solicitud.ID
	mine := detail.Asignaciones[0].Asignacion

	add := func(member model.Principal, hours float64) (*model.Asignacion, error) {
		return env.Ledger.AddAssignment(env.Ctx, service.AddAssignmentInput{
			Principal:       client,
			SolicitudID:     id,
			AssignmentInput: service.AssignmentInput{MemberID: member.ID, Hours: hours},
		})
	}

	_, err = add(second, 5)
	expectErr(t, err, service.ErrInsufficientBudget)
	_, err = add(first, 1)
	expectErr(t, err, service.ErrDuplicateMember)
	theirs, err := add(second, 4)
	if err != nil {
		t.Fatalf("add assignment: %v", err)
	}
	if got := len(env.Outbox.find("assignment_offered")); got != 2 {
		t.Fatalf("expected two assignment offers, got %d", got)
	}

	respond(t, env, first, mine.ID, true)
	if got := solicitudStatus(t, env, client, id); got != model.SolicitudParcial {
		t.Fatalf("expected parcial, got %s", got)
	}

	rejected := respond(t, env, second, theirs.ID, false)
	if rejected.RejectionReason == nil || rejected.RespondedAt == nil {
		t.Fatalf("rejection not recorded: %+v", rejected)
	}
	if got := solicitudStatus(t, env, client, id); got != model.SolicitudEnProgreso {
		t.Fatalf("expected en_progreso, got %s", got)
	}

	_, err = env.Ledger.RespondAssignment(env.Ctx, service.RespondAssignmentInput{Principal: second, AsignacionID: theirs.ID, Approve: true})
	expectErr(t, err, service.ErrInvalidState)

	// rejected hours go back to the pool and the member may be offered work again
	if _, err := add(second, 4); err != nil {
		t.Fatalf("re-add after rejection: %v", err)
	}

	_, err = env.Ledger.GetSolicitud(env.Ctx, env.member(t, "dan"), id)
	expectErr(t, err, service.ErrPermissionDenied)
	if _, err := env.Ledger.GetSolicitud(env.Ctx, second, id); err != nil {
		t.Fatalf("assigned member should see the solicitud: %v", err)
	}
}

func TestAllRejectedCancelsSolicitud(t *testing.T) {
	env := newTestEnv(t)
	client := env.client(t, "ana")
	worker := env.member(t, "bea")
	detail, err := env.Ledger.CreateSolicitud(env.Ctx, service.CreateSolicitudInput{
		Principal:   client,
		TotalHours:  4,
		Assignments: []service.AssignmentInput{{MemberID: worker.ID, Hours: 4}},
	})
	if err != nil {
		t.Fatalf("create solicitud: %v", err)
	}
	respond(t, env, worker, detail.Asignaciones[0].Asignacion.ID, false)
	if got := solicitudStatus(t, env, client, detail.Solicitud.ID); got != model.SolicitudCancelado {
		t.Fatalf("expected cancelado, got %s", got)
	}
}

func TestProgressPreConfirmAndCompletion(t *testing.T) {
	env := newTestEnv(t)
	client := env.client(t, "ana")
	worker := env.member(t, "bea")
	detail, err := env.Ledger.CreateSolicitud(env.Ctx, service.CreateSolicitudInput{
		Principal:   client,
		TotalHours:  6,
		Assignments: []service.AssignmentInput{{MemberID: worker.ID, Hours: 6}},
	})
	if err != nil {
		t.Fatalf("create solicitud: %v", err)
	}
	id := detail.Asignaciones[0].Asignacion.ID

	_, err = env.Ledger.ReportProgress(env.Ctx, service.ReportProgressInput{Principal: worker, AsignacionID: id, Hours: 1, Narrative: "early start"})
	expectErr(t, err, service.ErrInvalidState)

	respond(t, env, worker, id, true)

	_, err = env.Ledger.ReportProgress(env.Ctx, service.ReportProgressInput{Principal: worker, AsignacionID: id})
	expectErr(t, err, service.ErrInvalidInput)

	result, err := env.Ledger.ReportProgress(env.Ctx, service.ReportProgressInput{
		Principal:    worker,
		AsignacionID: id,
		Hours:        2,
		Narrative:    "schema and endpoints",
		EvidenceURL:  "https://git.example.test/pr/12",
	})
	if err != nil {
		t.Fatalf("report progress: %v", err)
	}
	if result.Asignacion.Status != model.AsignacionEnProgreso || result.Asignacion.ConsumedHours != 2 {
		t.Fatalf("unexpected assignment %+v", result.Asignacion)
	}
	if result.SolicitudStatus != model.SolicitudEnProgreso || result.Avance.EvidenceURL == nil {
		t.Fatalf("unexpected progress result %+v", result)
	}

	_, err = env.Ledger.ReportProgress(env.Ctx, service.ReportProgressInput{Principal: worker, AsignacionID: id, Hours: 5})
	expectErr(t, err, service.ErrBudgetExceeded)

	_, err = env.Ledger.ConfirmCompletion(env.Ctx, client, id)
	expectErr(t, err, service.ErrInvalidState)

	_, err = env.Ledger.PreConfirm(env.Ctx, client, id)
	expectErr(t, err, service.ErrPermissionDenied)

	pre, err := env.Ledger.PreConfirm(env.Ctx, worker, id)
	if err != nil {
		t.Fatalf("pre-confirm: %v", err)
	}
	if pre.Status != model.AsignacionPreConfirmado || pre.ConsumedHours != 6 || pre.PreConfirmedAt == nil {
		t.Fatalf("pre-confirmation should consume the whole allotment: %+v", pre)
	}

	_, err = env.Ledger.PreConfirm(env.Ctx, worker, id)
	expectErr(t, err, service.ErrInvalidState)
	_, err = env.Ledger.ConfirmCompletion(env.Ctx, worker, id)
	expectErr(t, err, service.ErrPermissionDenied)

	done, err := env.Ledger.ConfirmCompletion(env.Ctx, client, id)
	if err != nil {
		t.Fatalf("confirm completion: %v", err)
	}
	if done.Status != model.AsignacionCompletado || done.CompletedAt == nil {
		t.Fatalf("unexpected assignment %+v", done)
	}
	if got := solicitudStatus(t, env, client, detail.Solicitud.ID); got != model.SolicitudCompletado {
		t.Fatalf("expected completado, got %s", got)
	}
	if got := len(env.Outbox.find("assignment_completed")); got != 1 {
		t.Fatalf("expected a completion notice, got %d", got)
	}

	full, err := env.Ledger.GetSolicitud(env.Ctx, client, detail.Solicitud.ID)
	if err != nil {
		t.Fatalf("get solicitud: %v", err)
	}
	if got := len(full.Asignaciones[0].Avances); got != 1 {
		t.Fatalf("expected one progress entry, got %d", got)
	}

	_, err = env.Ledger.AddAssignment(env.Ctx, service.AddAssignmentInput{
		Principal:       client,
		SolicitudID:     detail.Solicitud.ID,
		AssignmentInput: service.AssignmentInput{MemberID: env.member(t, "carl").ID, Hours: 1},
	})
	expectErr(t, err, service.ErrInvalidState)
}

func TestConfirmationWithUnusedBudgetStaysOpen(t *testing.T) {
	env := newTestEnv(t)
	client := env.client(t, "ana")
	worker := env.member(t, "bea")
	detail, err := env.Ledger.CreateSolicitud(env.Ctx, service.CreateSolicitudInput{
		Principal:   client,
		TotalHours:  8,
		Assignments: []service.AssignmentInput{{MemberID: worker.ID, Hours: 3}},
	})
	if err != nil {
		t.Fatalf("create solicitud: %v", err)
	}
	id := detail.Asignaciones[0].Asignacion.ID
	respond(t, env, worker, id, true)

	result, err := env.Ledger.ReportProgress(env.Ctx, service.ReportProgressInput{
		Principal:       worker,
		AsignacionID:    id,
		Hours:           1,
		Narrative:       "done early",
		PreConfirmation: true,
	})
	if err != nil {
		t.Fatalf("report progress: %v", err)
	}
	if result.Asignacion.Status != model.AsignacionPreConfirmado || result.Asignacion.ConsumedHours != 3 {
		t.Fatalf("flagged report should pre-confirm: %+v", result.Asignacion)
	}

	if _, err := env.Ledger.ConfirmCompletion(env.Ctx, client, id); err != nil {
		t.Fatalf("confirm completion: %v", err)
	}
	if got := solicitudStatus(t, env, client, detail.Solicitud.ID); got != model.SolicitudEnProgreso {
		t.Fatalf("unconsumed budget keeps the solicitud open, got %s", got)
	}
}
