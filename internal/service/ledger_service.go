package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/ledger"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/repository"
)

// LedgerService distributes a Solicitud's hours across members and tracks consumption.
type LedgerService struct {
	tx          *repository.Transactor
	solicitudes *repository.SolicitudRepository
	accounts    *repository.AccountRepository
	notify      dispatch
	now         clock
}

func NewLedgerService(
	tx *repository.Transactor,
	solicitudes *repository.SolicitudRepository,
	accounts *repository.AccountRepository,
	notifier Notifier,
	log zerolog.Logger,
) *LedgerService {
	return &LedgerService{
		tx:          tx,
		solicitudes: solicitudes,
		accounts:    accounts,
		notify:      dispatch{notifier: notifier, log: log},
	}
}

type AssignmentInput struct {
	MemberID uuid.UUID `json:"member_id"`
	Hours    float64   `json:"hours"`
	Task     string    `json:"task"`
}

type CreateSolicitudInput struct {
	Principal    model.Principal
	TotalHours   float64
	DiscountTier int
	Notes        string
	Assignments  []AssignmentInput
}

// CreateSolicitud stores the request and its initial assignments in one transaction.
func (s *LedgerService) CreateSolicitud(ctx context.Context, input CreateSolicitudInput) (*model.SolicitudDetail, error) {
	if !input.Principal.IsClient() {
		return nil, fmt.Errorf("%w: only clients can request hours", ErrPermissionDenied)
	}
	if input.TotalHours <= 0 {
		return nil, fmt.Errorf("%w: total_hours must be positive", ErrInvalidInput)
	}
	if input.DiscountTier < 0 {
		return nil, fmt.Errorf("%w: discount_tier cannot be negative", ErrInvalidInput)
	}
	for i, a := range input.Assignments {
		if a.Hours <= 0 {
			return nil, fmt.Errorf("%w: assignment %d must request positive hours", ErrInvalidInput, i)
		}
	}

	solicitud := &model.Solicitud{
		ClientID:     input.Principal.ID,
		TotalHours:   input.TotalHours,
		DiscountTier: input.DiscountTier,
		Status:       model.SolicitudPendiente,
		Notes:        strings.TrimSpace(input.Notes),
	}
	var (
		created    []model.Asignacion
		recipients []model.Member
	)
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		solicitudes := s.solicitudes.WithTx(tx)
		if err := solicitudes.Create(ctx, solicitud); err != nil {
			return err
		}
		for _, a := range input.Assignments {
			asignacion, member, err := s.addAssignment(ctx, tx, *solicitud, created, a)
			if err != nil {
				return err
			}
			created = append(created, *asignacion)
			recipients = append(recipients, *member)
		}
		solicitud.Status = ledger.Aggregate(created)
		return solicitudes.UpdateStatus(ctx, solicitud.ID, solicitud.Status)
	})
	if err != nil {
		return nil, err
	}

	for i, member := range recipients {
		s.notifyAssigned(ctx, member, created[i])
	}
	detail := &model.SolicitudDetail{Solicitud: *solicitud, Asignaciones: make([]model.AsignacionDetail, 0, len(created))}
	for _, a := range created {
		detail.Asignaciones = append(detail.Asignaciones, model.AsignacionDetail{Asignacion: a, Avances: []model.Avance{}})
	}
	return detail, nil
}

type AddAssignmentInput struct {
	Principal   model.Principal
	SolicitudID uuid.UUID
	AssignmentInput
}

func (s *LedgerService) AddAssignment(ctx context.Context, input AddAssignmentInput) (*model.Asignacion, error) {
	if input.Hours <= 0 {
		return nil, fmt.Errorf("%w: hours must be positive", ErrInvalidInput)
	}

	var (
		asignacion *model.Asignacion
		member     *model.Member
	)
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		solicitudes := s.solicitudes.WithTx(tx)
		solicitud, err := solicitudes.GetForUpdate(ctx, input.SolicitudID)
		if err != nil {
			return notFound(err, "solicitud")
		}
		if !input.Principal.Is(model.RoleClient, solicitud.ClientID) && !input.Principal.IsAdmin() {
			return fmt.Errorf("%w: only the requesting client can assign hours", ErrPermissionDenied)
		}
		if solicitud.Status == model.SolicitudCompletado {
			return fmt.Errorf("%w: solicitud is %s", ErrInvalidState, solicitud.Status)
		}
		existing, err := solicitudes.ListAsignaciones(ctx, solicitud.ID)
		if err != nil {
			return err
		}
		asignacion, member, err = s.addAssignment(ctx, tx, *solicitud, existing, input.AssignmentInput)
		if err != nil {
			return err
		}
		return solicitudes.UpdateStatus(ctx, solicitud.ID, ledger.Aggregate(append(existing, *asignacion)))
	})
	if err != nil {
		return nil, err
	}
	s.notifyAssigned(ctx, *member, *asignacion)
	return asignacion, nil
}

// addAssignment validates one allotment against the assignments already on the
// solicitud and inserts it as pendiente. The caller holds the solicitud lock.
func (s *LedgerService) addAssignment(ctx context.Context, tx *gorm.DB, solicitud model.Solicitud, existing []model.Asignacion, input AssignmentInput) (*model.Asignacion, *model.Member, error) {
	if ledger.HasLiveMember(existing, input.MemberID) {
		return nil, nil, fmt.Errorf("%w: member already holds an assignment on this solicitud", ErrDuplicateMember)
	}
	if !ledger.Fits(input.Hours, solicitud.TotalHours, existing) {
		return nil, nil, fmt.Errorf("%w: %.2f hours requested, %.2f unallocated",
			ErrInsufficientBudget, input.Hours, ledger.Unallocated(solicitud.TotalHours, existing))
	}
	member, err := s.accounts.WithTx(tx).GetMember(ctx, input.MemberID)
	if err != nil {
		return nil, nil, notFound(err, "member")
	}
	asignacion := &model.Asignacion{
		SolicitudID:   solicitud.ID,
		MemberID:      input.MemberID,
		Task:          strings.TrimSpace(input.Task),
		AssignedHours: input.Hours,
		Status:        model.AsignacionPendiente,
	}
	if err := s.solicitudes.WithTx(tx).CreateAsignacion(ctx, asignacion); err != nil {
		return nil, nil, err
	}
	return asignacion, member, nil
}

type RespondAssignmentInput struct {
	Principal    model.Principal
	AsignacionID uuid.UUID
	Approve      bool
	Reason       string
}

func (s *LedgerService) RespondAssignment(ctx context.Context, input RespondAssignmentInput) (*model.Asignacion, error) {
	var (
		asignacion *model.Asignacion
		solicitud  *model.Solicitud
	)
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		solicitudes := s.solicitudes.WithTx(tx)
		var (
			all []model.Asignacion
			err error
		)
		solicitud, asignacion, all, err = s.loadAsignacion(ctx, solicitudes, input.AsignacionID)
		if err != nil {
			return err
		}
		if !input.Principal.Is(model.RoleMember, asignacion.MemberID) {
			return fmt.Errorf("%w: only the assigned member can respond", ErrPermissionDenied)
		}
		if asignacion.Status != model.AsignacionPendiente {
			return fmt.Errorf("%w: assignment is %s", ErrInvalidState, asignacion.Status)
		}
		at := s.now.now()
		asignacion.RespondedAt = &at
		if input.Approve {
			asignacion.Status = model.AsignacionAprobado
		} else {
			asignacion.Status = model.AsignacionRechazado
			if reason := strings.TrimSpace(input.Reason); reason != "" {
				asignacion.RejectionReason = &reason
			}
		}
		if err := solicitudes.SaveAsignacion(ctx, asignacion); err != nil {
			return err
		}
		solicitud.Status = ledger.Aggregate(all)
		return solicitudes.UpdateStatus(ctx, solicitud.ID, solicitud.Status)
	})
	if err != nil {
		return nil, err
	}

	template := "assignment_approved"
	if asignacion.Status == model.AsignacionRechazado {
		template = "assignment_rejected"
	}
	s.notifyClient(ctx, *solicitud, template, fmt.Sprintf("A member answered your hour request: %s", asignacion.Status), *asignacion)
	return asignacion, nil
}

type ReportProgressInput struct {
	Principal       model.Principal
	AsignacionID    uuid.UUID
	Hours           float64
	Narrative       string
	EvidenceURL     string
	PreConfirmation bool
}

type ProgressResult struct {
	Asignacion      model.Asignacion      `json:"asignacion"`
	Avance          model.Avance          `json:"avance"`
	SolicitudStatus model.SolicitudStatus `json:"solicitud_status"`
}

// ReportProgress appends an Avance. Reported hours are consumed immediately; a report
// flagged as pre-confirmation closes the assignment out.
func (s *LedgerService) ReportProgress(ctx context.Context, input ReportProgressInput) (*ProgressResult, error) {
	narrative := strings.TrimSpace(input.Narrative)
	if input.Hours < 0 {
		return nil, fmt.Errorf("%w: hours cannot be negative", ErrInvalidInput)
	}
	if input.Hours == 0 && narrative == "" && !input.PreConfirmation {
		return nil, fmt.Errorf("%w: a progress report needs hours or a narrative", ErrInvalidInput)
	}

	var (
		result    ProgressResult
		solicitud *model.Solicitud
	)
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		solicitudes := s.solicitudes.WithTx(tx)
		var (
			asignacion *model.Asignacion
			all        []model.Asignacion
			err        error
		)
		solicitud, asignacion, all, err = s.loadAsignacion(ctx, solicitudes, input.AsignacionID)
		if err != nil {
			return err
		}
		if !input.Principal.Is(model.RoleMember, asignacion.MemberID) {
			return fmt.Errorf("%w: only the assigned member can report progress", ErrPermissionDenied)
		}
		if asignacion.Status != model.AsignacionAprobado && asignacion.Status != model.AsignacionEnProgreso {
			return fmt.Errorf("%w: assignment is %s", ErrInvalidState, asignacion.Status)
		}
		if ledger.ExceedsAllotment(*asignacion, input.Hours) {
			return fmt.Errorf("%w: %.2f hours reported, %.2f left on the assignment",
				ErrBudgetExceeded, input.Hours, ledger.RemainingAllotment(*asignacion))
		}

		avance := &model.Avance{
			AsignacionID:    asignacion.ID,
			MemberID:        input.Principal.ID,
			HoursReported:   input.Hours,
			Narrative:       narrative,
			PreConfirmation: input.PreConfirmation,
		}
		if url := strings.TrimSpace(input.EvidenceURL); url != "" {
			avance.EvidenceURL = &url
		}
		if err := solicitudes.AppendAvance(ctx, avance); err != nil {
			return err
		}

		asignacion.ConsumedHours += input.Hours
		if input.Hours > 0 && asignacion.Status == model.AsignacionAprobado {
			asignacion.Status = model.AsignacionEnProgreso
		}
		if input.PreConfirmation {
			s.preConfirm(asignacion)
		}
		if err := solicitudes.SaveAsignacion(ctx, asignacion); err != nil {
			return err
		}

		status := ledger.Aggregate(all)
		if input.Hours > 0 {
			status = ledger.AfterProgress(status)
		}
		solicitud.Status = status
		if err := solicitudes.UpdateStatus(ctx, solicitud.ID, status); err != nil {
			return err
		}
		result = ProgressResult{Asignacion: *asignacion, Avance: *avance, SolicitudStatus: status}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Asignacion.Status == model.AsignacionPreConfirmado {
		s.notifyClient(ctx, *solicitud, "assignment_pre_confirmed", "A member finished their assignment", result.Asignacion)
	}
	return &result, nil
}

// PreConfirm is the member's declaration that the assignment is done.
func (s *LedgerService) PreConfirm(ctx context.Context, principal model.Principal, asignacionID uuid.UUID) (*model.Asignacion, error) {
	var (
		asignacion *model.Asignacion
		solicitud  *model.Solicitud
	)
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		solicitudes := s.solicitudes.WithTx(tx)
		var (
			all []model.Asignacion
			err error
		)
		solicitud, asignacion, all, err = s.loadAsignacion(ctx, solicitudes, asignacionID)
		if err != nil {
			return err
		}
		if !principal.Is(model.RoleMember, asignacion.MemberID) {
			return fmt.Errorf("%w: only the assigned member can pre-confirm", ErrPermissionDenied)
		}
		if asignacion.Status != model.AsignacionAprobado && asignacion.Status != model.AsignacionEnProgreso {
			return fmt.Errorf("%w: assignment is %s", ErrInvalidState, asignacion.Status)
		}
		s.preConfirm(asignacion)
		if err := solicitudes.SaveAsignacion(ctx, asignacion); err != nil {
			return err
		}
		solicitud.Status = ledger.Aggregate(all)
		return solicitudes.UpdateStatus(ctx, solicitud.ID, solicitud.Status)
	})
	if err != nil {
		return nil, err
	}
	s.notifyClient(ctx, *solicitud, "assignment_pre_confirmed", "A member finished their assignment", *asignacion)
	return asignacion, nil
}

func (s *LedgerService) preConfirm(asignacion *model.Asignacion) {
	ledger.CloseOutRemaining(asignacion)
	at := s.now.now()
	asignacion.Status = model.AsignacionPreConfirmado
	asignacion.PreConfirmedAt = &at
}

// ConfirmCompletion is the client's sign-off on a pre-confirmed assignment.
func (s *LedgerService) ConfirmCompletion(ctx context.Context, principal model.Principal, asignacionID uuid.UUID) (*model.Asignacion, error) {
	var asignacion *model.Asignacion
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		solicitudes := s.solicitudes.WithTx(tx)
		solicitud, a, all, err := s.loadAsignacion(ctx, solicitudes, asignacionID)
		if err != nil {
			return err
		}
		asignacion = a
		if !principal.Is(model.RoleClient, solicitud.ClientID) {
			return fmt.Errorf("%w: only the requesting client can confirm completion", ErrPermissionDenied)
		}
		if asignacion.Status != model.AsignacionPreConfirmado {
			return fmt.Errorf("%w: only pre-confirmed assignments can be confirmed, assignment is %s", ErrInvalidState, asignacion.Status)
		}
		at := s.now.now()
		asignacion.Status = model.AsignacionCompletado
		asignacion.CompletedAt = &at
		if err := solicitudes.SaveAsignacion(ctx, asignacion); err != nil {
			return err
		}
		return solicitudes.UpdateStatus(ctx, solicitud.ID, ledger.AfterConfirmation(solicitud.TotalHours, all))
	})
	if err != nil {
		return nil, err
	}

	member, err := s.accounts.GetMember(ctx, asignacion.MemberID)
	if err != nil {
		s.notify.log.Warn().Err(err).Str("asignacion_id", asignacion.ID.String()).Msg("load assignment member")
		return asignacion, nil
	}
	s.notify.send(ctx, model.Notification{
		To:       member.Email,
		Template: "assignment_completed",
		Subject:  "Your assignment was confirmed",
		Data:     assignmentData(*asignacion),
	})
	return asignacion, nil
}

func (s *LedgerService) GetSolicitud(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.SolicitudDetail, error) {
	solicitud, err := s.solicitudes.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "solicitud")
	}
	asignaciones, err := s.solicitudes.ListAsignaciones(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.Is(model.RoleClient, solicitud.ClientID) && !principal.IsAdmin() && !holdsAssignment(principal, asignaciones) {
		return nil, fmt.Errorf("%w: not a party to this solicitud", ErrPermissionDenied)
	}

	ids := make([]uuid.UUID, 0, len(asignaciones))
	for _, a := range asignaciones {
		ids = append(ids, a.ID)
	}
	avances, err := s.solicitudes.ListAvances(ctx, ids)
	if err != nil {
		return nil, err
	}
	byAsignacion := make(map[uuid.UUID][]model.Avance, len(asignaciones))
	for _, avance := range avances {
		byAsignacion[avance.AsignacionID] = append(byAsignacion[avance.AsignacionID], avance)
	}

	detail := &model.SolicitudDetail{Solicitud: *solicitud, Asignaciones: make([]model.AsignacionDetail, 0, len(asignaciones))}
	for _, a := range asignaciones {
		logs := byAsignacion[a.ID]
		if logs == nil {
			logs = []model.Avance{}
		}
		detail.Asignaciones = append(detail.Asignaciones, model.AsignacionDetail{Asignacion: a, Avances: logs})
	}
	return detail, nil
}

// loadAsignacion locks the parent solicitud and returns the assignment as an element of
// the full sibling list, so edits to it are visible to the aggregate recomputation. The
// first read only resolves the parent id; every returned row is read under the lock.
func (s *LedgerService) loadAsignacion(ctx context.Context, solicitudes *repository.SolicitudRepository, id uuid.UUID) (*model.Solicitud, *model.Asignacion, []model.Asignacion, error) {
	asignacion, err := solicitudes.GetAsignacion(ctx, id)
	if err != nil {
		return nil, nil, nil, notFound(err, "assignment")
	}
	solicitud, err := solicitudes.GetForUpdate(ctx, asignacion.SolicitudID)
	if err != nil {
		return nil, nil, nil, notFound(err, "solicitud")
	}
	all, err := solicitudes.ListAsignaciones(ctx, solicitud.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	for i := range all {
		if all[i].ID == asignacion.ID {
			return solicitud, &all[i], all, nil
		}
	}
	return nil, nil, nil, fmt.Errorf("%w: assignment not found", ErrNotFound)
}

func (s *LedgerService) notifyAssigned(ctx context.Context, member model.Member, asignacion model.Asignacion) {
	s.notify.send(ctx, model.Notification{
		To:       member.Email,
		Template: "assignment_offered",
		Subject:  fmt.Sprintf("You were offered %.1f hours", asignacion.AssignedHours),
		Data:     assignmentData(asignacion),
	})
}

func (s *LedgerService) notifyClient(ctx context.Context, solicitud model.Solicitud, template, subject string, asignacion model.Asignacion) {
	client, err := s.accounts.GetClient(ctx, solicitud.ClientID)
	if err != nil {
		s.notify.log.Warn().Err(err).Str("solicitud_id", solicitud.ID.String()).Msg("load solicitud client")
		return
	}
	data := assignmentData(asignacion)
	data["solicitud_status"] = solicitud.Status
	s.notify.send(ctx, model.Notification{To: client.Email, Template: template, Subject: subject, Data: data})
}

func holdsAssignment(principal model.Principal, asignaciones []model.Asignacion) bool {
	if !principal.IsMember() {
		return false
	}
	for _, a := range asignaciones {
		if a.MemberID == principal.ID {
			return true
		}
	}
	return false
}

func assignmentData(a model.Asignacion) map[string]any {
	return map[string]any{
		"asignacion_id":  a.ID,
		"solicitud_id":   a.SolicitudID,
		"assigned_hours": a.AssignedHours,
		"consumed_hours": a.ConsumedHours,
		"status":         a.Status,
	}
}
