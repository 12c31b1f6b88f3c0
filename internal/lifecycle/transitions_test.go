package lifecycle

import (
	"testing"

	"github.com/google/uuid"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
)

func TestRegimeFor(t *testing.T) {
	accepted := model.Bid{MemberID: uuid.New(), Status: model.BidAccepted}
	removed := model.Bid{MemberID: uuid.New(), Status: model.BidAccepted, Removed: true}

	if got := RegimeFor(model.VisibilityPrivate, nil); got != RegimePrivate {
		t.Fatalf("private without team: got %s", got)
	}
	if got := RegimeFor(model.VisibilityPrivate, []model.Bid{removed}); got != RegimePrivate {
		t.Fatalf("removed bid must not count: got %s", got)
	}
	if got := RegimeFor(model.VisibilityPrivate, []model.Bid{accepted}); got != RegimeCollaborative {
		t.Fatalf("private with team: got %s", got)
	}
	if got := RegimeFor(model.VisibilityPublic, nil); got != RegimeCollaborative {
		t.Fatalf("public: got %s", got)
	}
}

func TestPrivateFreeMovement(t *testing.T) {
	if !CanTransition(RegimePrivate, model.ProjectDraft, model.ProjectTesting) {
		t.Fatalf("draft -> testing should be allowed")
	}
	if !CanTransition(RegimePrivate, model.ProjectTesting, model.ProjectDraft) {
		t.Fatalf("testing -> draft should be allowed")
	}
	if !CanTransition(RegimePrivate, model.ProjectStarted, model.ProjectCancelled) {
		t.Fatalf("cancel escape should be allowed")
	}
	if CanTransition(RegimePrivate, model.ProjectDraft, model.ProjectPlanned) {
		t.Fatalf("planned is not part of the private set")
	}
	if CanTransition(RegimePrivate, model.ProjectCompleted, model.ProjectStarted) {
		t.Fatalf("completed is terminal")
	}
}

func TestCollaborativeGraph(t *testing.T) {
	allowed := [][2]model.ProjectStatus{
		{model.ProjectPublished, model.ProjectPlanned},
		{model.ProjectPlanned, model.ProjectStarted},
		{model.ProjectStarted, model.ProjectInProgress},
		{model.ProjectStarted, model.ProjectImplementing},
		{model.ProjectInProgress, model.ProjectTesting},
		{model.ProjectImplementing, model.ProjectCompleted},
		{model.ProjectTesting, model.ProjectImplementing},
	}
	for _, pair := range allowed {
		if !CanTransition(RegimeCollaborative, pair[0], pair[1]) {
			t.Errorf("%s -> %s should be allowed", pair[0], pair[1])
		}
	}
	denied := [][2]model.ProjectStatus{
		{model.ProjectPublished, model.ProjectStarted},
		{model.ProjectInProgress, model.ProjectCancelled},
		{model.ProjectDraft, model.ProjectTesting},
		{model.ProjectTesting, model.ProjectStarted},
	}
	for _, pair := range denied {
		if CanTransition(RegimeCollaborative, pair[0], pair[1]) {
			t.Errorf("%s -> %s should be denied", pair[0], pair[1])
		}
	}
}

func TestTerminalStates(t *testing.T) {
	for _, s := range []model.ProjectStatus{
		model.ProjectCompleted, model.ProjectCompletedPartial, model.ProjectNotCompleted,
		model.ProjectCancelled, model.ProjectCancelledNoAgreement, model.ProjectCancelledNoBudget,
		model.ProjectUnpaid, model.ProjectNotCompletedByMember,
	} {
		if !IsTerminal(s) {
			t.Errorf("%s should be terminal", s)
		}
		if len(AllowedNext(RegimePrivate, s)) != 0 || len(AllowedNext(RegimeCollaborative, s)) != 0 {
			t.Errorf("%s should have no outgoing edges", s)
		}
	}
	if IsTerminal(model.ProjectTesting) {
		t.Fatalf("testing is not terminal")
	}
}

func TestTeamProgressIgnoresRemoved(t *testing.T) {
	bids := []model.Bid{
		{Status: model.BidAccepted, WorkFinished: true},
		{Status: model.BidAccepted, Removed: true},
		{Status: model.BidPending},
		{Status: model.BidAccepted},
	}
	finished, active := TeamProgress(bids)
	if finished != 1 || active != 2 {
		t.Fatalf("progress = %d/%d, want 1/2", finished, active)
	}
	if TeamFinished(bids) {
		t.Fatalf("team is not finished")
	}
	bids[3].Removed = true
	if !TeamFinished(bids) {
		t.Fatalf("remaining member finished")
	}
}

func TestClosureCodes(t *testing.T) {
	if !ClosureAllowed(model.RoleMember, model.ProjectUnpaid) {
		t.Errorf("member may report unpaid")
	}
	if ClosureAllowed(model.RoleClient, model.ProjectUnpaid) {
		t.Errorf("client may not report unpaid")
	}
	if !ClosureAllowed(model.RoleClient, model.ProjectNotCompletedByMember) {
		t.Errorf("client may report not_completed_by_member")
	}
	if ClosureAllowed(model.RoleMember, model.ProjectNotCompletedByMember) {
		t.Errorf("member may not report not_completed_by_member")
	}
	if ClosureAllowed(model.RoleAdmin, model.ProjectTesting) {
		t.Errorf("non-terminal code is never a closure")
	}
	if !RequiresJustification(model.ProjectUnpaid) || RequiresJustification(model.ProjectCompleted) {
		t.Errorf("justification table mismatch")
	}
}

func TestAcceptsBids(t *testing.T) {
	cases := []struct {
		visibility model.ProjectVisibility
		status     model.ProjectStatus
		want       bool
	}{
		{model.VisibilityPublic, model.ProjectPublished, true},
		{model.VisibilityPublic, model.ProjectPlanned, true},
		{model.VisibilityPublic, model.ProjectStarted, false},
		{model.VisibilityPrivate, model.ProjectDraft, false},
		{model.VisibilityPrivate, model.ProjectStarted, true},
		{model.VisibilityPrivate, model.ProjectTesting, true},
		{model.VisibilityPrivate, model.ProjectCompleted, false},
	}
	for _, tc := range cases {
		if got := AcceptsBids(tc.visibility, tc.status); got != tc.want {
			t.Errorf("AcceptsBids(%s, %s) = %v, want %v", tc.visibility, tc.status, got, tc.want)
		}
	}
}

func TestClosureOnly(t *testing.T) {
	for _, status := range []model.ProjectStatus{model.ProjectCompleted, model.ProjectCancelled, model.ProjectTesting} {
		if ClosureOnly(status) {
			t.Errorf("%s is reachable by transition", status)
		}
	}
	for _, status := range []model.ProjectStatus{model.ProjectUnpaid, model.ProjectNotCompletedByMember, model.ProjectCompletedPartial, model.ProjectCancelledNoBudget} {
		if !ClosureOnly(status) {
			t.Errorf("%s must go through a closure", status)
		}
	}
}
