package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/repository"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/schedule"
)

// SchedulingService books package sessions against purchase availability and hour budgets.
type SchedulingService struct {
	tx          *repository.Transactor
	packages    *repository.PackageRepository
	parties     purchaseParties
	now         clock
	slotMinutes int
}

func NewSchedulingService(
	tx *repository.Transactor,
	packages *repository.PackageRepository,
	accounts *repository.AccountRepository,
	notifier Notifier,
	log zerolog.Logger,
	slotMinutes int,
) *SchedulingService {
	if slotMinutes <= 0 {
		slotMinutes = schedule.DefaultSlotMinutes
	}
	return &SchedulingService{
		tx:          tx,
		packages:    packages,
		parties:     purchaseParties{accounts: accounts, notify: dispatch{notifier: notifier, log: log}},
		slotMinutes: slotMinutes,
	}
}

func (s *SchedulingService) AvailableSlots(ctx context.Context, principal model.Principal, purchaseID uuid.UUID, date string) (*model.SlotsResult, error) {
	day, err := schedule.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	purchase, err := s.packages.GetPurchase(ctx, purchaseID)
	if err != nil {
		return nil, notFound(err, "purchase")
	}
	if !purchase.Party(principal) && !principal.IsAdmin() {
		return nil, fmt.Errorf("%w: not a party to this purchase", ErrPermissionDenied)
	}

	key := schedule.FormatDate(day)
	windows, err := s.purchaseWindows(ctx, s.packages, purchase.ID, int(day.Weekday()))
	if err != nil {
		return nil, err
	}
	booked, err := s.packages.ListBookedOnDate(ctx, purchase.ID, key)
	if err != nil {
		return nil, err
	}
	pending, err := s.packages.PendingHours(ctx, purchase.ID)
	if err != nil {
		return nil, err
	}
	remaining := schedule.Remaining(purchase.TotalHours, purchase.ConsumedHours, pending)
	return &model.SlotsResult{
		Date:           key,
		Slots:          schedule.Slots(windows, sessionWindows(booked, uuid.Nil), s.slotMinutes),
		RemainingHours: &remaining,
	}, nil
}

type ScheduleSessionInput struct {
	Principal  model.Principal
	PurchaseID uuid.UUID
	Date       string
	Start      schedule.Clock
	End        schedule.Clock
	Notes      string
}

// ScheduleSession books [Start, End) on a purchase. The purchase row stays locked while
// the window, conflict and budget checks run.
func (s *SchedulingService) ScheduleSession(ctx context.Context, input ScheduleSessionInput) (*model.PackageSession, error) {
	day, err := schedule.ParseDate(input.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	requested := schedule.NewWindow(input.Start, input.End)
	if !requested.Valid() {
		return nil, fmt.Errorf("%w: session must end after it starts", ErrInvalidInput)
	}

	var (
		session  *model.PackageSession
		purchase *model.PackagePurchase
	)
	err = s.tx.Do(ctx, func(tx *gorm.DB) error {
		packages := s.packages.WithTx(tx)
		var err error
		purchase, err = packages.GetPurchaseForUpdate(ctx, input.PurchaseID)
		if err != nil {
			return notFound(err, "purchase")
		}
		if !input.Principal.Is(model.RoleClient, purchase.ClientID) && !input.Principal.IsAdmin() {
			return fmt.Errorf("%w: only the purchasing client can book sessions", ErrPermissionDenied)
		}
		if !purchase.Bookable() {
			return fmt.Errorf("%w: purchase is %s", ErrInvalidState, purchase.Status)
		}

		key := schedule.FormatDate(day)
		if err := s.checkBooking(ctx, packages, *purchase, key, int(day.Weekday()), requested, uuid.Nil, 0); err != nil {
			return err
		}

		session = &model.PackageSession{
			PurchaseID:    purchase.ID,
			MemberID:      purchase.MemberID,
			SessionDate:   key,
			StartTime:     requested.Start,
			EndTime:       requested.End,
			DurationHours: requested.Hours(),
			Status:        model.SessionScheduled,
			Notes:         strings.TrimSpace(input.Notes),
		}
		return packages.CreateSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	s.parties.member(ctx, *purchase, "session_scheduled", "A new session was booked", sessionData(*session))
	return session, nil
}

// checkBooking runs the window, overlap and budget checks for a candidate booking.
// Passing a session id excludes that session from the overlap check and credits its
// current duration back to the budget.
func (s *SchedulingService) checkBooking(
	ctx context.Context,
	packages *repository.PackageRepository,
	purchase model.PackagePurchase,
	date string,
	dayOfWeek int,
	requested schedule.Window,
	exclude uuid.UUID,
	credit float64,
) error {
	windows, err := s.purchaseWindows(ctx, packages, purchase.ID, dayOfWeek)
	if err != nil {
		return err
	}
	if !schedule.AnyCovers(windows, requested) {
		return fmt.Errorf("%w: %s-%s on %s is not inside an availability window", ErrOutOfWindow, requested.Start, requested.End, date)
	}
	booked, err := packages.ListBookedOnDate(ctx, purchase.ID, date)
	if err != nil {
		return err
	}
	if other, ok := schedule.FirstConflict(sessionWindows(booked, exclude), requested); ok {
		return fmt.Errorf("%w: overlaps the session %s-%s", ErrConflict, other.Start, other.End)
	}
	pending, err := packages.PendingHours(ctx, purchase.ID)
	if err != nil {
		return err
	}
	remaining := schedule.Remaining(purchase.TotalHours, purchase.ConsumedHours, pending) + credit
	if schedule.Exceeds(requested.Hours(), remaining) {
		return fmt.Errorf("%w: %.2f hours requested, %.2f remaining", ErrBudgetExceeded, requested.Hours(), remaining)
	}
	return nil
}

func (s *SchedulingService) purchaseWindows(ctx context.Context, packages *repository.PackageRepository, purchaseID uuid.UUID, dayOfWeek int) ([]schedule.Window, error) {
	rows, err := packages.ListActiveWindows(ctx, purchaseID, dayOfWeek)
	if err != nil {
		return nil, err
	}
	windows := make([]schedule.Window, 0, len(rows))
	for _, row := range rows {
		windows = append(windows, row.Window())
	}
	return windows, nil
}

// CompleteSession consumes the session's hours. The first completion moves an approved
// purchase into in_progress.
func (s *SchedulingService) CompleteSession(ctx context.Context, principal model.Principal, sessionID uuid.UUID) (*model.PackageSession, error) {
	var (
		session  *model.PackageSession
		purchase *model.PackagePurchase
		remain   float64
	)
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		packages := s.packages.WithTx(tx)
		var err error
		session, purchase, err = s.loadSession(ctx, packages, sessionID)
		if err != nil {
			return err
		}
		if !principal.Is(model.RoleMember, purchase.MemberID) && !principal.IsAdmin() {
			return fmt.Errorf("%w: only the assigned member can complete sessions", ErrPermissionDenied)
		}
		if session.Status != model.SessionScheduled {
			return fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
		}
		if !purchase.Bookable() {
			return fmt.Errorf("%w: purchase is %s", ErrInvalidState, purchase.Status)
		}

		at := s.now.now()
		session.Status = model.SessionCompleted
		session.CompletedAt = &at
		session.ClearProposal()
		if err := packages.SaveSession(ctx, session); err != nil {
			return err
		}
		purchase.ConsumedHours += session.DurationHours
		if purchase.Status == model.PurchaseApproved {
			purchase.Status = model.PurchaseInProgress
		}
		if err := packages.SavePurchase(ctx, purchase); err != nil {
			return err
		}
		pending, err := packages.PendingHours(ctx, purchase.ID)
		if err != nil {
			return err
		}
		remain = schedule.Remaining(purchase.TotalHours, purchase.ConsumedHours, pending)
		return nil
	})
	if err != nil {
		return nil, err
	}

	data := sessionData(*session)
	data["remaining_hours"] = remain
	data["consumed_hours"] = purchase.ConsumedHours
	s.parties.client(ctx, *purchase, "session_completed", "A session was completed", data)
	return session, nil
}

func (s *SchedulingService) CancelSession(ctx context.Context, principal model.Principal, sessionID uuid.UUID) (*model.PackageSession, error) {
	session, purchase, err := s.closeSession(ctx, principal, sessionID, model.RoleClient, model.SessionCancelled)
	if err != nil {
		return nil, err
	}
	s.parties.member(ctx, *purchase, "session_cancelled", "A session was cancelled", sessionData(*session))
	return session, nil
}

func (s *SchedulingService) MarkNoShow(ctx context.Context, principal model.Principal, sessionID uuid.UUID) (*model.PackageSession, error) {
	session, purchase, err := s.closeSession(ctx, principal, sessionID, model.RoleMember, model.SessionNoShow)
	if err != nil {
		return nil, err
	}
	s.parties.client(ctx, *purchase, "session_no_show", "A session was marked as missed", sessionData(*session))
	return session, nil
}

// closeSession moves a scheduled session into a state that consumes no hours.
func (s *SchedulingService) closeSession(ctx context.Context, principal model.Principal, sessionID uuid.UUID, role model.Role, target model.SessionStatus) (*model.PackageSession, *model.PackagePurchase, error) {
	var (
		session  *model.PackageSession
		purchase *model.PackagePurchase
	)
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		packages := s.packages.WithTx(tx)
		var err error
		session, purchase, err = s.loadSession(ctx, packages, sessionID)
		if err != nil {
			return err
		}
		if !principal.Is(role, partyID(*purchase, role)) && !principal.IsAdmin() {
			return fmt.Errorf("%w: only the %s can mark a session %s", ErrPermissionDenied, role, target)
		}
		if session.Status != model.SessionScheduled {
			return fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
		}
		session.Status = target
		session.ClearProposal()
		return packages.SaveSession(ctx, session)
	})
	if err != nil {
		return nil, nil, err
	}
	return session, purchase, nil
}

type ProposeChangeInput struct {
	Principal model.Principal
	SessionID uuid.UUID
	Date      string
	Start     schedule.Clock
	End       schedule.Clock
	Reason    string
}

// ProposeChange records the member's requested new slot. The booking itself is untouched
// until the client accepts.
func (s *SchedulingService) ProposeChange(ctx context.Context, input ProposeChangeInput) (*model.PackageSession, error) {
	day, err := schedule.ParseDate(input.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	proposed := schedule.NewWindow(input.Start, input.End)
	if !proposed.Valid() {
		return nil, fmt.Errorf("%w: proposed session must end after it starts", ErrInvalidInput)
	}
	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: a reason is required", ErrInvalidInput)
	}

	var (
		session  *model.PackageSession
		purchase *model.PackagePurchase
	)
	err = s.tx.Do(ctx, func(tx *gorm.DB) error {
		packages := s.packages.WithTx(tx)
		var err error
		session, purchase, err = s.loadSession(ctx, packages, input.SessionID)
		if err != nil {
			return err
		}
		if !input.Principal.Is(model.RoleMember, purchase.MemberID) {
			return fmt.Errorf("%w: only the assigned member can propose changes", ErrPermissionDenied)
		}
		if !purchase.Bookable() {
			return fmt.Errorf("%w: purchase is %s", ErrInvalidState, purchase.Status)
		}
		if session.Status != model.SessionScheduled {
			return fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
		}
		key := schedule.FormatDate(day)
		at := s.now.now()
		session.ProposedDate = &key
		session.ProposedStart = &proposed.Start
		session.ProposedEnd = &proposed.End
		session.ChangeReason = &reason
		session.ChangeRequestedAt = &at
		return packages.SaveSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	data := sessionData(*session)
	data["proposed_date"] = *session.ProposedDate
	data["proposed_start"] = session.ProposedStart.String()
	data["proposed_end"] = session.ProposedEnd.String()
	data["reason"] = reason
	s.parties.client(ctx, *purchase, "session_change_proposed", "Your member proposed a new session time", data)
	return session, nil
}

// AcceptChange applies a pending proposal after re-running the booking checks against
// the proposed date. The session stays scheduled.
func (s *SchedulingService) AcceptChange(ctx context.Context, principal model.Principal, sessionID uuid.UUID) (*model.PackageSession, error) {
	var (
		session  *model.PackageSession
		purchase *model.PackagePurchase
	)
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		packages := s.packages.WithTx(tx)
		var err error
		session, purchase, err = s.loadSession(ctx, packages, sessionID)
		if err != nil {
			return err
		}
		if err := s.checkProposal(principal, *session, *purchase); err != nil {
			return err
		}
		day, err := schedule.ParseDate(*session.ProposedDate)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		proposed := schedule.NewWindow(*session.ProposedStart, *session.ProposedEnd)
		if err := s.checkBooking(ctx, packages, *purchase, *session.ProposedDate, int(day.Weekday()), proposed, session.ID, session.DurationHours); err != nil {
			return err
		}
		session.SessionDate = *session.ProposedDate
		session.StartTime = proposed.Start
		session.EndTime = proposed.End
		session.DurationHours = proposed.Hours()
		session.ClearProposal()
		return packages.SaveSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	s.parties.member(ctx, *purchase, "session_change_accepted", "Your session change was accepted", sessionData(*session))
	return session, nil
}

func (s *SchedulingService) RejectChange(ctx context.Context, principal model.Principal, sessionID uuid.UUID) (*model.PackageSession, error) {
	var (
		session  *model.PackageSession
		purchase *model.PackagePurchase
	)
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		packages := s.packages.WithTx(tx)
		var err error
		session, purchase, err = s.loadSession(ctx, packages, sessionID)
		if err != nil {
			return err
		}
		if err := s.checkProposal(principal, *session, *purchase); err != nil {
			return err
		}
		session.ClearProposal()
		return packages.SaveSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	s.parties.member(ctx, *purchase, "session_change_rejected", "Your session change was declined", sessionData(*session))
	return session, nil
}

func (s *SchedulingService) checkProposal(principal model.Principal, session model.PackageSession, purchase model.PackagePurchase) error {
	if !principal.Is(model.RoleClient, purchase.ClientID) {
		return fmt.Errorf("%w: only the purchasing client can answer change requests", ErrPermissionDenied)
	}
	if session.Status != model.SessionScheduled {
		return fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
	}
	if !session.HasProposal() {
		return fmt.Errorf("%w: session has no pending change request", ErrInvalidState)
	}
	return nil
}

// loadSession locks the owning purchase before returning the session.
func (s *SchedulingService) loadSession(ctx context.Context, packages *repository.PackageRepository, sessionID uuid.UUID) (*model.PackageSession, *model.PackagePurchase, error) {
	session, err := packages.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, notFound(err, "session")
	}
	purchase, err := packages.GetPurchaseForUpdate(ctx, session.PurchaseID)
	if err != nil {
		return nil, nil, notFound(err, "purchase")
	}
	// re-read under the purchase lock so status checks see committed state
	session, err = packages.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, notFound(err, "session")
	}
	return session, purchase, nil
}

func partyID(purchase model.PackagePurchase, role model.Role) uuid.UUID {
	if role == model.RoleClient {
		return purchase.ClientID
	}
	return purchase.MemberID
}

func sessionWindows(sessions []model.PackageSession, exclude uuid.UUID) []schedule.Window {
	windows := make([]schedule.Window, 0, len(sessions))
	for _, session := range sessions {
		if session.ID != exclude {
			windows = append(windows, session.Window())
		}
	}
	return windows
}

func sessionData(session model.PackageSession) map[string]any {
	return map[string]any{
		"session_id":     session.ID,
		"session_date":   session.SessionDate,
		"start_time":     session.StartTime.String(),
		"end_time":       session.EndTime.String(),
		"duration_hours": session.DurationHours,
		"status":         session.Status,
	}
}
