package service_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/schedule"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/service"
)

// 2026-10-19 and 2026-10-26 are Mondays, 2026-10-20 is a Tuesday.
const (
	monday     = "2026-10-19"
	nextMonday = "2026-10-26"
	tuesday    = "2026-10-20"
)

var mondayMorning = service.WindowInput{DayOfWeek: 1, Start: schedule.MustClock("09:00"), End: schedule.MustClock("11:00")}

// approvedPackage buys hours on a Monday 09:00-11:00 window and has the member approve.
func approvedPackage(t *testing.T, env testEnv, client, member model.Principal, hours float64) *model.PackagePurchase {
	t.Helper()
	purchase, err := env.Packages.Purchase(env.Ctx, service.PurchaseInput{
		Principal:  client,
		MemberID:   member.ID,
		Title:      "Mentoring",
		TotalHours: hours,
		Windows:    []service.WindowInput{mondayMorning},
	})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	purchase, err = env.Packages.Respond(env.Ctx, service.RespondInput{Principal: member, PurchaseID: purchase.ID, Decision: service.DecisionApprove})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	return purchase
}

func book(env testEnv, client model.Principal, purchaseID uuid.UUID, date, start, end string) (*model.PackageSession, error) {
	return env.Scheduling.ScheduleSession(env.Ctx, service.ScheduleSessionInput{
		Principal:  client,
		PurchaseID: purchaseID,
		Date:       date,
		Start:      schedule.MustClock(start),
		End:        schedule.MustClock(end),
	})
}

func mustBook(t *testing.T, env testEnv, client model.Principal, purchaseID uuid.UUID, date, start, end string) *model.PackageSession {
	t.Helper()
	session, err := book(env, client, purchaseID, date, start, end)
	if err != nil {
		t.Fatalf("book %s %s-%s: %v", date, start, end, err)
	}
	return session
}

func availability(t *testing.T, env testEnv, principal model.Principal, purchaseID uuid.UUID, date string) *model.SlotsResult {
	t.Helper()
	result, err := env.Scheduling.AvailableSlots(env.Ctx, principal, purchaseID, date)
	if err != nil {
		t.Fatalf("available slots: %v", err)
	}
	return result
}

func freeSlots(slots []schedule.Slot) []string {
	free := make([]string, 0)
	for _, s := range slots {
		if s.Available {
			free = append(free, s.Start.String())
		}
	}
	return free
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestScheduleSessionChecks(t *testing.T) {
	env := newTestEnv(t)
	client, member := env.client(t, "ana"), env.member(t, "bea")

	pending, err := env.Packages.Purchase(env.Ctx, service.PurchaseInput{Principal: client, MemberID: member.ID, TotalHours: 3, Windows: []service.WindowInput{mondayMorning}})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	_, err = book(env, client, pending.ID, monday, "09:00", "10:00")
	expectErr(t, err, service.ErrInvalidState)

	purchase, err := env.Packages.Respond(env.Ctx, service.RespondInput{Principal: member, PurchaseID: pending.ID, Decision: service.DecisionApprove})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}

	slots := availability(t, env, client, purchase.ID, monday)
	if len(slots.Slots) != 4 || slots.RemainingHours == nil || *slots.RemainingHours != 3 {
		t.Fatalf("unexpected slots %+v", slots)
	}

	_, err = book(env, member, purchase.ID, monday, "09:00", "10:00")
	expectErr(t, err, service.ErrPermissionDenied)

	first := mustBook(t, env, client, purchase.ID, monday, "09:00", "10:30")
	if first.DurationHours != 1.5 || first.Status != model.SessionScheduled || first.MemberID != member.ID {
		t.Fatalf("unexpected session %+v", first)
	}

	_, err = book(env, client, purchase.ID, monday, "10:00", "10:30")
	expectErr(t, err, service.ErrConflict)
	_, err = book(env, client, purchase.ID, tuesday, "09:00", "10:00")
	expectErr(t, err, service.ErrOutOfWindow)
	_, err = book(env, client, purchase.ID, monday, "10:30", "12:00")
	expectErr(t, err, service.ErrOutOfWindow)
	_, err = book(env, client, purchase.ID, monday, "10:00", "09:30")
	expectErr(t, err, service.ErrInvalidInput)
	_, err = book(env, client, purchase.ID, "19/10/2026", "09:00", "09:30")
	expectErr(t, err, service.ErrInvalidInput)

	second := mustBook(t, env, client, purchase.ID, monday, "10:30", "11:00")

	_, err = book(env, client, purchase.ID, nextMonday, "09:00", "11:00")
	expectErr(t, err, service.ErrBudgetExceeded)

	slots = availability(t, env, member, purchase.ID, monday)
	if free := freeSlots(slots.Slots); len(free) != 0 || *slots.RemainingHours != 1 {
		t.Fatalf("expected a fully booked morning with 1h left, got %v and %v", free, *slots.RemainingHours)
	}

	if _, err := env.Scheduling.CancelSession(env.Ctx, client, first.ID); err != nil {
		t.Fatalf("cancel session: %v", err)
	}
	slots = availability(t, env, client, purchase.ID, monday)
	if free := freeSlots(slots.Slots); !sameStrings(free, []string{"09:00", "09:30", "10:00"}) || *slots.RemainingHours != 2.5 {
		t.Fatalf("cancelled session should free its slots, got %v and %v", free, *slots.RemainingHours)
	}

	_, err = env.Scheduling.MarkNoShow(env.Ctx, member, first.ID)
	expectErr(t, err, service.ErrInvalidState)
	_, err = env.Scheduling.CancelSession(env.Ctx, member, second.ID)
	expectErr(t, err, service.ErrPermissionDenied)

	_, err = env.Scheduling.AvailableSlots(env.Ctx, env.client(t, "zoe"), purchase.ID, monday)
	expectErr(t, err, service.ErrPermissionDenied)
}

func TestCompleteSessionConsumesHours(t *testing.T) {
	env := newTestEnv(t)
	client, member := env.client(t, "ana"), env.member(t, "bea")
	purchase := approvedPackage(t, env, client, member, 3)
	session := mustBook(t, env, client, purchase.ID, monday, "09:00", "10:30")

	_, err := env.Scheduling.CompleteSession(env.Ctx, client, session.ID)
	expectErr(t, err, service.ErrPermissionDenied)

	done, err := env.Scheduling.CompleteSession(env.Ctx, member, session.ID)
	if err != nil {
		t.Fatalf("complete session: %v", err)
	}
	if done.Status != model.SessionCompleted || done.CompletedAt == nil {
		t.Fatalf("unexpected session %+v", done)
	}

	detail, err := env.Packages.GetPurchase(env.Ctx, client, purchase.ID)
	if err != nil {
		t.Fatalf("get purchase: %v", err)
	}
	if detail.Purchase.Status != model.PurchaseInProgress || detail.Purchase.ConsumedHours != 1.5 || detail.RemainingHours != 1.5 {
		t.Fatalf("unexpected purchase %+v remaining %v", detail.Purchase, detail.RemainingHours)
	}
	notices := env.Outbox.find("session_completed")
	if len(notices) != 1 || notices[0].Data["remaining_hours"] != 1.5 {
		t.Fatalf("unexpected completion notices %+v", notices)
	}

	_, err = env.Scheduling.CompleteSession(env.Ctx, member, session.ID)
	expectErr(t, err, service.ErrInvalidState)

	// a completed session still occupies its slot
	_, err = book(env, client, purchase.ID, monday, "09:30", "10:00")
	expectErr(t, err, service.ErrConflict)

	missed := mustBook(t, env, client, purchase.ID, nextMonday, "09:00", "10:00")
	if _, err := env.Scheduling.MarkNoShow(env.Ctx, member, missed.ID); err != nil {
		t.Fatalf("mark no-show: %v", err)
	}
	detail, err = env.Packages.GetPurchase(env.Ctx, member, purchase.ID)
	if err != nil {
		t.Fatalf("get purchase: %v", err)
	}
	if detail.Purchase.ConsumedHours != 1.5 || detail.RemainingHours != 1.5 {
		t.Fatalf("no-show must not consume hours: %+v remaining %v", detail.Purchase, detail.RemainingHours)
	}
}

func TestChangeRequestHandshake(t *testing.T) {
	env := newTestEnv(t)
	client, member := env.client(t, "ana"), env.member(t, "bea")
	purchase := approvedPackage(t, env, client, member, 3)
	session := mustBook(t, env, client, purchase.ID, monday, "09:00", "11:00")
	blocker := mustBook(t, env, client, purchase.ID, nextMonday, "09:00", "10:00")

	propose := func(principal model.Principal, date, start, end, reason string) (*model.PackageSession, error) {
		return env.Scheduling.ProposeChange(env.Ctx, service.ProposeChangeInput{
			Principal: principal,
			SessionID: session.ID,
			Date:      date,
			Start:     schedule.MustClock(start),
			End:       schedule.MustClock(end),
			Reason:    reason,
		})
	}

	_, err := propose(member, nextMonday, "09:30", "11:00", " ")
	expectErr(t, err, service.ErrInvalidInput)
	_, err = propose(client, nextMonday, "09:30", "11:00", "travel")
	expectErr(t, err, service.ErrPermissionDenied)
	_, err = env.Scheduling.AcceptChange(env.Ctx, client, session.ID)
	expectErr(t, err, service.ErrInvalidState)

	proposed, err := propose(member, nextMonday, "09:30", "11:00", "travel")
	if err != nil {
		t.Fatalf("propose change: %v", err)
	}
	if !proposed.HasProposal() || proposed.SessionDate != monday {
		t.Fatalf("proposal must not move the booking yet: %+v", proposed)
	}

	_, err = env.Scheduling.AcceptChange(env.Ctx, member, session.ID)
	expectErr(t, err, service.ErrPermissionDenied)
	_, err = env.Scheduling.AcceptChange(env.Ctx, client, session.ID)
	expectErr(t, err, service.ErrConflict)

	rejected, err := env.Scheduling.RejectChange(env.Ctx, client, session.ID)
	if err != nil {
		t.Fatalf("reject change: %v", err)
	}
	if rejected.HasProposal() || rejected.ChangeReason != nil {
		t.Fatalf("rejection should clear the proposal: %+v", rejected)
	}

	if _, err := env.Scheduling.CancelSession(env.Ctx, client, blocker.ID); err != nil {
		t.Fatalf("cancel blocker: %v", err)
	}
	// the session's own two hours are credited back, so a two hour move fits the one hour left
	if _, err := propose(member, nextMonday, "09:00", "11:00", "travel"); err != nil {
		t.Fatalf("propose change: %v", err)
	}
	moved, err := env.Scheduling.AcceptChange(env.Ctx, client, session.ID)
	if err != nil {
		t.Fatalf("accept change: %v", err)
	}
	if moved.SessionDate != nextMonday || moved.StartTime != schedule.MustClock("09:00") || moved.DurationHours != 2 {
		t.Fatalf("unexpected session after move %+v", moved)
	}
	if moved.Status != model.SessionScheduled || moved.HasProposal() {
		t.Fatalf("accepted change should leave a plain scheduled session: %+v", moved)
	}
	if got := len(env.Outbox.find("session_change_accepted")); got != 1 {
		t.Fatalf("expected acceptance notice, got %d", got)
	}

	slots := availability(t, env, client, purchase.ID, monday)
	if free := freeSlots(slots.Slots); len(free) != 4 {
		t.Fatalf("old date should be free after the move, got %v", free)
	}
}

func TestProposalOutsideWindowFailsOnAccept(t *testing.T) {
	env := newTestEnv(t)
	client, member := env.client(t, "ana"), env.member(t, "bea")
	purchase := approvedPackage(t, env, client, member, 3)
	session := mustBook(t, env, client, purchase.ID, monday, "09:00", "10:00")

	if _, err := env.Scheduling.ProposeChange(env.Ctx, service.ProposeChangeInput{
		Principal: member,
		SessionID: session.ID,
		Date:      tuesday,
		Start:     schedule.MustClock("09:00"),
		End:       schedule.MustClock("10:00"),
		Reason:    "doctor appointment",
	}); err != nil {
		t.Fatalf("propose change: %v", err)
	}
	_, err := env.Scheduling.AcceptChange(env.Ctx, client, session.ID)
	expectErr(t, err, service.ErrOutOfWindow)
}

func TestProposeChangeRequiresOpenPurchase(t *testing.T) {
	env := newTestEnv(t)
	client, member := env.client(t, "ana"), env.member(t, "bea")
	purchase := approvedPackage(t, env, client, member, 3)
	session := mustBook(t, env, client, purchase.ID, monday, "09:00", "10:00")

	// a purchase closed while this booking was still on the calendar
	if err := env.DB.Model(&model.PackagePurchase{}).Where("id = ?", purchase.ID).Update("status", model.PurchaseCompleted).Error; err != nil {
		t.Fatalf("close purchase: %v", err)
	}

	_, err := env.Scheduling.ProposeChange(env.Ctx, service.ProposeChangeInput{
		Principal: member,
		SessionID: session.ID,
		Date:      nextMonday,
		Start:     schedule.MustClock("09:00"),
		End:       schedule.MustClock("10:00"),
		Reason:    "travel",
	})
	expectErr(t, err, service.ErrInvalidState)
	if !strings.Contains(err.Error(), "purchase is completed") {
		t.Fatalf("expected the purchase status in the reason, got %v", err)
	}
	if got := len(env.Outbox.find("session_change_proposed")); got != 0 {
		t.Fatalf("no proposal notice expected, got %d", got)
	}
}
