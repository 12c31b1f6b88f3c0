package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/repository"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/schedule"
)

// AvailabilityService manages member-wide weekly windows and per-date exceptions.
type AvailabilityService struct {
	availability *repository.AvailabilityRepository
	packages     *repository.PackageRepository
	accounts     *repository.AccountRepository
	slotMinutes  int
}

func NewAvailabilityService(
	availability *repository.AvailabilityRepository,
	packages *repository.PackageRepository,
	accounts *repository.AccountRepository,
	slotMinutes int,
) *AvailabilityService {
	if slotMinutes <= 0 {
		slotMinutes = schedule.DefaultSlotMinutes
	}
	return &AvailabilityService{
		availability: availability,
		packages:     packages,
		accounts:     accounts,
		slotMinutes:  slotMinutes,
	}
}

// MemberSlots resolves the member's windows for a date and marks slots taken by any of
// the member's non-cancelled sessions.
func (s *AvailabilityService) MemberSlots(ctx context.Context, memberID uuid.UUID, date string) (*model.SlotsResult, error) {
	day, err := schedule.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if _, err := s.accounts.GetMember(ctx, memberID); err != nil {
		return nil, notFound(err, "member")
	}

	key := schedule.FormatDate(day)
	weekly, err := s.availability.ListActiveWeekly(ctx, memberID, int(day.Weekday()))
	if err != nil {
		return nil, err
	}
	windows := make([]schedule.Window, 0, len(weekly))
	for _, row := range weekly {
		windows = append(windows, row.Window())
	}
	exception, err := s.availability.GetException(ctx, memberID, key)
	if err != nil {
		return nil, err
	}
	booked, err := s.packages.ListMemberBookedOnDate(ctx, memberID, key)
	if err != nil {
		return nil, err
	}

	resolved := schedule.Resolve(windows, override(exception))
	return &model.SlotsResult{
		Date:  key,
		Slots: schedule.Slots(resolved, sessionWindows(booked, uuid.Nil), s.slotMinutes),
	}, nil
}

func override(exception *model.AvailabilityException) *schedule.Override {
	if exception == nil {
		return nil
	}
	if exception.Kind == model.ExceptionBlocked {
		return &schedule.Override{Blocked: true}
	}
	o := &schedule.Override{}
	if exception.StartTime != nil && exception.EndTime != nil {
		o.Windows = []schedule.Window{schedule.NewWindow(*exception.StartTime, *exception.EndTime)}
	}
	return o
}

func (s *AvailabilityService) ListMemberAvailability(ctx context.Context, memberID uuid.UUID) ([]model.MemberAvailability, error) {
	return s.availability.ListWeekly(ctx, memberID)
}

// SetMemberAvailability replaces the caller's weekly windows.
func (s *AvailabilityService) SetMemberAvailability(ctx context.Context, principal model.Principal, windows []WindowInput) ([]model.MemberAvailability, error) {
	if !principal.IsMember() {
		return nil, fmt.Errorf("%w: only members publish availability", ErrPermissionDenied)
	}
	if err := validateWindows(windows); err != nil {
		return nil, err
	}
	rows := make([]model.MemberAvailability, 0, len(windows))
	for _, w := range windows {
		rows = append(rows, model.MemberAvailability{
			DayOfWeek: w.DayOfWeek,
			StartTime: w.Start,
			EndTime:   w.End,
			Active:    true,
		})
	}
	if err := s.availability.ReplaceWeekly(ctx, principal.ID, rows); err != nil {
		return nil, err
	}
	return rows, nil
}

type ExceptionInput struct {
	Principal model.Principal
	Date      string
	Kind      model.ExceptionKind
	Start     *schedule.Clock
	End       *schedule.Clock
	Reason    string
}

// AddException overrides the member's weekly windows for one date. A second exception on
// the same date replaces the first.
func (s *AvailabilityService) AddException(ctx context.Context, input ExceptionInput) (*model.AvailabilityException, error) {
	if !input.Principal.IsMember() {
		return nil, fmt.Errorf("%w: only members manage availability exceptions", ErrPermissionDenied)
	}
	day, err := schedule.ParseDate(input.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	exception := &model.AvailabilityException{
		MemberID:      input.Principal.ID,
		ExceptionDate: schedule.FormatDate(day),
		Kind:          input.Kind,
		Reason:        strings.TrimSpace(input.Reason),
	}
	switch input.Kind {
	case model.ExceptionBlocked:
	case model.ExceptionAvailable:
		if (input.Start == nil) != (input.End == nil) {
			return nil, fmt.Errorf("%w: start and end must be given together", ErrInvalidInput)
		}
		if input.Start != nil {
			if !schedule.NewWindow(*input.Start, *input.End).Valid() {
				return nil, fmt.Errorf("%w: exception must end after it starts", ErrInvalidInput)
			}
			exception.StartTime = input.Start
			exception.EndTime = input.End
		}
	default:
		return nil, fmt.Errorf("%w: kind must be blocked or available", ErrInvalidInput)
	}
	if err := s.availability.PutException(ctx, exception); err != nil {
		return nil, err
	}
	return exception, nil
}

func (s *AvailabilityService) RemoveException(ctx context.Context, principal model.Principal, date string) error {
	if !principal.IsMember() {
		return fmt.Errorf("%w: only members manage availability exceptions", ErrPermissionDenied)
	}
	day, err := schedule.ParseDate(date)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return notFound(s.availability.DeleteException(ctx, principal.ID, schedule.FormatDate(day)), "exception")
}
