package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/lifecycle"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/repository"
)

const minRemovalReason = 5

type ProjectService struct {
	tx           *repository.Transactor
	projects     *repository.ProjectRepository
	accounts     *repository.AccountRepository
	consequences *ConsequenceDispatcher
	notify       dispatch
	now          clock
}

func NewProjectService(
	tx *repository.Transactor,
	projects *repository.ProjectRepository,
	accounts *repository.AccountRepository,
	consequences *ConsequenceDispatcher,
	notifier Notifier,
	log zerolog.Logger,
) *ProjectService {
	return &ProjectService{
		tx:           tx,
		projects:     projects,
		accounts:     accounts,
		consequences: consequences,
		notify:       dispatch{notifier: notifier, log: log},
	}
}

type CreateProjectInput struct {
	Principal       model.Principal
	Title           string
	Description     string
	Visibility      model.ProjectVisibility
	ClientID        *uuid.UUID
	MaxParticipants int
	Budget          float64
	Requirements    []string
	RemoteAddr      string
}

func (s *ProjectService) CreateProject(ctx context.Context, input CreateProjectInput) (*model.Project, error) {
	if !input.Principal.IsClient() && !input.Principal.IsMember() {
		return nil, fmt.Errorf("%w: only clients and members can publish projects", ErrPermissionDenied)
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if input.Visibility != model.VisibilityPrivate && input.Visibility != model.VisibilityPublic {
		return nil, fmt.Errorf("%w: visibility must be private or public", ErrInvalidInput)
	}
	if input.Budget < 0 {
		return nil, fmt.Errorf("%w: budget cannot be negative", ErrInvalidInput)
	}
	maxParticipants := input.MaxParticipants
	if maxParticipants == 0 {
		maxParticipants = 1
	}
	if maxParticipants < 1 {
		return nil, fmt.Errorf("%w: max_participants must be positive", ErrInvalidInput)
	}

	clientID := input.ClientID
	if input.Principal.IsClient() {
		id := input.Principal.ID
		clientID = &id
	}

	requirements := make([]model.ProjectRequirement, 0, len(input.Requirements))
	for _, label := range input.Requirements {
		if label = strings.TrimSpace(label); label != "" {
			requirements = append(requirements, model.ProjectRequirement{Label: label})
		}
	}

	project := &model.Project{
		Title:           title,
		Description:     strings.TrimSpace(input.Description),
		Visibility:      input.Visibility,
		Status:          lifecycle.InitialStatus(input.Visibility),
		OwnerID:         input.Principal.ID,
		OwnerRole:       input.Principal.Role,
		ClientID:        clientID,
		MaxParticipants: maxParticipants,
		Budget:          input.Budget,
	}

	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		accounts := s.accounts.WithTx(tx)
		if clientID != nil {
			if _, err := accounts.GetClient(ctx, *clientID); err != nil {
				return notFound(err, "client")
			}
		}
		if input.Principal.IsClient() && input.RemoteAddr != "" {
			if err := accounts.TouchClientAddress(ctx, input.Principal.ID, input.RemoteAddr); err != nil {
				return err
			}
		}
		return s.projects.WithTx(tx).Create(ctx, project, requirements)
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) GetProject(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.ProjectDetail, error) {
	project, err := s.projects.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "project")
	}
	bids, err := s.projects.ListBids(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(principal, *project, bids) {
		return nil, fmt.Errorf("%w: project is private", ErrPermissionDenied)
	}
	requirements, err := s.projects.ListRequirements(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.ProjectDetail{Project: *project, Requirements: requirements, Bids: bids}, nil
}

// ListTeam returns the accepted, non-removed participants.
func (s *ProjectService) ListTeam(ctx context.Context, principal model.Principal, id uuid.UUID) ([]model.Bid, error) {
	detail, err := s.GetProject(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	return lifecycle.ActiveTeam(detail.Bids), nil
}

type SetRequirementInput struct {
	Principal     model.Principal
	ProjectID     uuid.UUID
	RequirementID uuid.UUID
	Done          bool
}

func (s *ProjectService) SetRequirement(ctx context.Context, input SetRequirementInput) error {
	return s.tx.Do(ctx, func(tx *gorm.DB) error {
		projects := s.projects.WithTx(tx)
		project, err := projects.GetForUpdate(ctx, input.ProjectID)
		if err != nil {
			return notFound(err, "project")
		}
		if !project.OwnedBy(input.Principal) && !input.Principal.IsAdmin() {
			return fmt.Errorf("%w: only the owner can update requirements", ErrPermissionDenied)
		}
		if lifecycle.IsTerminal(project.Status) {
			return fmt.Errorf("%w: project is %s", ErrTerminalStateLocked, project.Status)
		}
		return notFound(projects.SetRequirementDone(ctx, project.ID, input.RequirementID, input.Done), "requirement")
	})
}

type SubmitBidInput struct {
	Principal model.Principal
	ProjectID uuid.UUID
	Amount    float64
	Proposal  string
}

func (s *ProjectService) SubmitBid(ctx context.Context, input SubmitBidInput) (*model.Bid, error) {
	if !input.Principal.IsMember() {
		return nil, fmt.Errorf("%w: only members can bid", ErrPermissionDenied)
	}
	if input.Amount < 0 {
		return nil, fmt.Errorf("%w: amount cannot be negative", ErrInvalidInput)
	}

	bid := &model.Bid{
		ProjectID: input.ProjectID,
		MemberID:  input.Principal.ID,
		Amount:    input.Amount,
		Proposal:  strings.TrimSpace(input.Proposal),
		Status:    model.BidPending,
	}
	var project *model.Project
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		projects := s.projects.WithTx(tx)
		member, err := s.accounts.WithTx(tx).GetMember(ctx, input.Principal.ID)
		if err != nil {
			return notFound(err, "member")
		}
		if member.Restricted {
			return fmt.Errorf("%w: member is restricted from bidding", ErrAccountRestricted)
		}
		project, err = projects.GetForUpdate(ctx, input.ProjectID)
		if err != nil {
			return notFound(err, "project")
		}
		if project.OwnedBy(input.Principal) {
			return fmt.Errorf("%w: owners cannot bid on their own project", ErrInvalidState)
		}
		if !lifecycle.AcceptsBids(project.Visibility, project.Status) {
			return fmt.Errorf("%w: %s project is not open for bids while %s", ErrInvalidState, project.Visibility, project.Status)
		}
		bids, err := projects.ListBids(ctx, project.ID)
		if err != nil {
			return err
		}
		if lifecycle.HasLiveBid(bids, input.Principal.ID) {
			return fmt.Errorf("%w: member already has a bid on this project", ErrDuplicateMember)
		}
		return projects.CreateBid(ctx, bid)
	})
	if err != nil {
		return nil, err
	}
	s.notifyOwner(ctx, *project, "bid_received", fmt.Sprintf("New bid on %q", project.Title))
	return bid, nil
}

type BidDecisionInput struct {
	Principal model.Principal
	BidID     uuid.UUID
}

// AcceptBid adds the bidder to the team. Once the team is full, every other pending bid
// is rejected in the same transaction.
func (s *ProjectService) AcceptBid(ctx context.Context, input BidDecisionInput) (*model.Bid, error) {
	var (
		accepted *model.Bid
		project  *model.Project
		rejected []model.Bid
	)
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		projects := s.projects.WithTx(tx)
		var bids []model.Bid
		var err error
		project, accepted, bids, err = s.loadBid(ctx, projects, input.BidID)
		if err != nil {
			return err
		}
		if !project.OwnedBy(input.Principal) && !input.Principal.IsAdmin() {
			return fmt.Errorf("%w: only the owner can accept bids", ErrPermissionDenied)
		}
		if lifecycle.IsTerminal(project.Status) {
			return fmt.Errorf("%w: project is %s", ErrTerminalStateLocked, project.Status)
		}
		if accepted.Status != model.BidPending || accepted.Removed {
			return fmt.Errorf("%w: only pending bids can be accepted", ErrInvalidState)
		}
		team := lifecycle.ActiveTeam(bids)
		if len(team) >= project.MaxParticipants {
			return fmt.Errorf("%w: team is already complete", ErrInvalidState)
		}
		accepted.Status = model.BidAccepted
		if err := projects.SaveBid(ctx, accepted); err != nil {
			return err
		}
		if len(team)+1 < project.MaxParticipants {
			return nil
		}
		for _, b := range lifecycle.PendingBids(bids) {
			if b.ID != accepted.ID {
				rejected = append(rejected, b)
			}
		}
		_, err = projects.RejectPendingBids(ctx, project.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.notifyMember(ctx, accepted.MemberID, "bid_accepted", fmt.Sprintf("Your bid on %q was accepted", project.Title), project.ID)
	for _, b := range rejected {
		s.notifyMember(ctx, b.MemberID, "bid_rejected", fmt.Sprintf("Your bid on %q was not selected", project.Title), project.ID)
	}
	return accepted, nil
}

func (s *ProjectService) RejectBid(ctx context.Context, input BidDecisionInput) (*model.Bid, error) {
	var (
		bid     *model.Bid
		project *model.Project
	)
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		projects := s.projects.WithTx(tx)
		var err error
		project, bid, _, err = s.loadBid(ctx, projects, input.BidID)
		if err != nil {
			return err
		}
		if !project.OwnedBy(input.Principal) && !input.Principal.IsAdmin() {
			return fmt.Errorf("%w: only the owner can reject bids", ErrPermissionDenied)
		}
		if bid.Status != model.BidPending || bid.Removed {
			return fmt.Errorf("%w: only pending bids can be rejected", ErrInvalidState)
		}
		bid.Status = model.BidRejected
		return projects.SaveBid(ctx, bid)
	})
	if err != nil {
		return nil, err
	}
	s.notifyMember(ctx, bid.MemberID, "bid_rejected", fmt.Sprintf("Your bid on %q was not selected", project.Title), project.ID)
	return bid, nil
}

type TransitionInput struct {
	Principal model.Principal
	ProjectID uuid.UUID
	Target    model.ProjectStatus
}

func (s *ProjectService) AttemptTransition(ctx context.Context, input TransitionInput) (*model.Project, error) {
	if !lifecycle.IsKnown(input.Target) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, input.Target)
	}
	if lifecycle.ClosureOnly(input.Target) {
		return nil, fmt.Errorf("%w: %s is a closure reason, close the project instead", ErrInvalidTransition, input.Target)
	}

	var (
		project *model.Project
		bids    []model.Bid
	)
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		projects := s.projects.WithTx(tx)
		var err error
		project, err = projects.GetForUpdate(ctx, input.ProjectID)
		if err != nil {
			return notFound(err, "project")
		}
		if !project.OwnedBy(input.Principal) && !input.Principal.IsAdmin() {
			return fmt.Errorf("%w: only the owner can change the project status", ErrPermissionDenied)
		}
		bids, err = projects.ListBids(ctx, project.ID)
		if err != nil {
			return err
		}

		from := project.Status
		if lifecycle.IsTerminal(from) {
			if !input.Principal.IsAdmin() {
				return fmt.Errorf("%w: project is %s", ErrTerminalStateLocked, from)
			}
			if input.Target == from {
				return fmt.Errorf("%w: project is already %s", ErrInvalidTransition, from)
			}
			if !lifecycle.IsTerminal(input.Target) {
				clearClosure(project)
			}
		} else {
			regime := lifecycle.RegimeFor(project.Visibility, bids)
			if !lifecycle.CanTransition(regime, from, input.Target) {
				return fmt.Errorf("%w: %s project cannot move from %s to %s", ErrInvalidTransition, regime, from, input.Target)
			}
			if input.Target == model.ProjectCompleted && regime == lifecycle.RegimeCollaborative {
				if finished, active := lifecycle.TeamProgress(bids); finished != active {
					return fmt.Errorf("%w: %d of %d team members finished", ErrIncompleteTeamWork, finished, active)
				}
			}
		}

		project.Status = input.Target
		if err := projects.Save(ctx, project); err != nil {
			return err
		}
		if lifecycle.RejectsPendingBids(input.Target) {
			if _, err := projects.RejectPendingBids(ctx, project.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case project.Status == model.ProjectCompleted:
		s.consequences.NotifyCompletion(ctx, *project, bids)
	case lifecycle.IsTerminal(project.Status):
		s.consequences.NotifyClosure(ctx, *project, bids)
	}
	return project, nil
}

type WorkProgress struct {
	Bid           model.Bid           `json:"bid"`
	Finished      int                 `json:"finished"`
	Active        int                 `json:"active"`
	ProjectStatus model.ProjectStatus `json:"project_status"`
	AutoCompleted bool                `json:"auto_completed"`
}

// MarkWorkFinished toggles a participant's finished flag. When every active participant
// has finished and the project sits in a state that may move to completed, the project
// completes on its own.
func (s *ProjectService) MarkWorkFinished(ctx context.Context, principal model.Principal, bidID uuid.UUID) (*WorkProgress, error) {
	var (
		project  *model.Project
		bids     []model.Bid
		progress WorkProgress
	)
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		projects := s.projects.WithTx(tx)
		var (
			bid *model.Bid
			err error
		)
		project, bid, bids, err = s.loadBid(ctx, projects, bidID)
		if err != nil {
			return err
		}
		if !principal.Is(model.RoleMember, bid.MemberID) && !principal.IsAdmin() {
			return fmt.Errorf("%w: only the participant can mark their work finished", ErrPermissionDenied)
		}
		if lifecycle.IsTerminal(project.Status) {
			return fmt.Errorf("%w: project is %s", ErrTerminalStateLocked, project.Status)
		}
		if !bid.Active() {
			return fmt.Errorf("%w: only accepted participants can mark work finished", ErrInvalidState)
		}

		bid.WorkFinished = !bid.WorkFinished
		if bid.WorkFinished {
			at := s.now.now()
			bid.WorkFinishedAt = &at
		} else {
			bid.WorkFinishedAt = nil
		}
		if err := projects.SaveBid(ctx, bid); err != nil {
			return err
		}
		for i := range bids {
			if bids[i].ID == bid.ID {
				bids[i] = *bid
			}
		}

		progress.Bid = *bid
		progress.Finished, progress.Active = lifecycle.TeamProgress(bids)
		regime := lifecycle.RegimeFor(project.Visibility, bids)
		if progress.Active > 0 && progress.Finished == progress.Active && lifecycle.CanTransition(regime, project.Status, model.ProjectCompleted) {
			project.Status = model.ProjectCompleted
			if err := projects.Save(ctx, project); err != nil {
				return err
			}
			if _, err := projects.RejectPendingBids(ctx, project.ID); err != nil {
				return err
			}
			progress.AutoCompleted = true
		}
		progress.ProjectStatus = project.Status
		return nil
	})
	if err != nil {
		return nil, err
	}
	if progress.AutoCompleted {
		s.consequences.NotifyCompletion(ctx, *project, bids)
	}
	return &progress, nil
}

type RemoveParticipantInput struct {
	Principal model.Principal
	BidID     uuid.UUID
	Reason    string
}

func (s *ProjectService) RemoveParticipant(ctx context.Context, input RemoveParticipantInput) (*model.Bid, error) {
	reason := strings.TrimSpace(input.Reason)
	if len([]rune(reason)) < minRemovalReason {
		return nil, fmt.Errorf("%w: removal reason must be at least %d characters", ErrInvalidInput, minRemovalReason)
	}

	var (
		bid     *model.Bid
		project *model.Project
	)
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		projects := s.projects.WithTx(tx)
		var (
			bids []model.Bid
			err  error
		)
		project, bid, bids, err = s.loadBid(ctx, projects, input.BidID)
		if err != nil {
			return err
		}
		if !canManageTeam(input.Principal, *project, bids) {
			return fmt.Errorf("%w: only the owner, a teammate or an administrator can remove participants", ErrPermissionDenied)
		}
		if lifecycle.IsTerminal(project.Status) && !input.Principal.IsAdmin() {
			return fmt.Errorf("%w: project is %s", ErrTerminalStateLocked, project.Status)
		}
		if bid.Removed {
			return fmt.Errorf("%w: participant was already removed", ErrInvalidState)
		}
		at := s.now.now()
		remover := input.Principal.ID
		bid.Removed = true
		bid.RemovedReason = &reason
		bid.RemovedByID = &remover
		bid.RemovedAt = &at
		return projects.SaveBid(ctx, bid)
	})
	if err != nil {
		return nil, err
	}
	s.notifyMember(ctx, bid.MemberID, "participant_removed", fmt.Sprintf("You were removed from %q", project.Title), project.ID)
	return bid, nil
}

type CloseProjectInput struct {
	Principal     model.Principal
	ProjectID     uuid.UUID
	Reason        model.ProjectStatus
	Justification string
}

type CloseResult struct {
	Project      model.Project `json:"project"`
	Consequences Consequences  `json:"consequences"`
}

// CloseWithReason moves a project into a terminal closure state. Account consequences are
// written in the same transaction as the state change.
func (s *ProjectService) CloseWithReason(ctx context.Context, input CloseProjectInput) (*CloseResult, error) {
	justification := strings.TrimSpace(input.Justification)
	if !lifecycle.IsTerminal(input.Reason) {
		return nil, fmt.Errorf("%w: unknown closure reason %q", ErrInvalidInput, input.Reason)
	}
	if !lifecycle.ClosureAllowed(input.Principal.Role, input.Reason) {
		return nil, fmt.Errorf("%w: closure reason %s is not available to %s accounts", ErrPermissionDenied, input.Reason, input.Principal.Role)
	}
	if lifecycle.RequiresJustification(input.Reason) && justification == "" {
		return nil, fmt.Errorf("%w: closure reason %s requires a justification", ErrInvalidInput, input.Reason)
	}

	var (
		result CloseResult
		bids   []model.Bid
	)
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		projects := s.projects.WithTx(tx)
		project, err := projects.GetForUpdate(ctx, input.ProjectID)
		if err != nil {
			return notFound(err, "project")
		}
		bids, err = projects.ListBids(ctx, project.ID)
		if err != nil {
			return err
		}
		if !canClose(input.Principal, *project, bids) {
			return fmt.Errorf("%w: caller is not a party to this project", ErrPermissionDenied)
		}
		if lifecycle.IsTerminal(project.Status) && !input.Principal.IsAdmin() {
			return fmt.Errorf("%w: project is %s", ErrTerminalStateLocked, project.Status)
		}
		if input.Reason == model.ProjectCompleted && lifecycle.RegimeFor(project.Visibility, bids) == lifecycle.RegimeCollaborative {
			if finished, active := lifecycle.TeamProgress(bids); finished != active {
				return fmt.Errorf("%w: %d of %d team members finished", ErrIncompleteTeamWork, finished, active)
			}
		}

		at := s.now.now()
		reason := input.Reason
		actorID := input.Principal.ID
		actorRole := input.Principal.Role
		project.Status = reason
		project.ClosureReason = &reason
		project.ClosedByID = &actorID
		project.ClosedByRole = &actorRole
		project.ClosedAt = &at
		project.ClosureJustification = nil
		if justification != "" {
			project.ClosureJustification = &justification
		}

		result.Consequences, err = s.consequences.Apply(ctx, tx, *project, bids, justification)
		if err != nil {
			return err
		}
		if err := projects.Save(ctx, project); err != nil {
			return err
		}
		if _, err := projects.RejectPendingBids(ctx, project.ID); err != nil {
			return err
		}
		result.Project = *project
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Project.Status == model.ProjectCompleted {
		s.consequences.NotifyCompletion(ctx, result.Project, bids)
	} else {
		s.consequences.NotifyClosure(ctx, result.Project, bids)
	}
	return &result, nil
}

func (s *ProjectService) loadBid(ctx context.Context, projects *repository.ProjectRepository, bidID uuid.UUID) (*model.Project, *model.Bid, []model.Bid, error) {
	bid, err := projects.GetBid(ctx, bidID)
	if err != nil {
		return nil, nil, nil, notFound(err, "bid")
	}
	project, err := projects.GetForUpdate(ctx, bid.ProjectID)
	if err != nil {
		return nil, nil, nil, notFound(err, "project")
	}
	bids, err := projects.ListBids(ctx, project.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	for i := range bids {
		if bids[i].ID == bid.ID {
			return project, &bids[i], bids, nil
		}
	}
	return project, bid, bids, nil
}

func (s *ProjectService) notifyOwner(ctx context.Context, project model.Project, template, subject string) {
	data := map[string]any{"project_id": project.ID, "title": project.Title}
	switch project.OwnerRole {
	case model.RoleClient:
		client, err := s.accounts.GetClient(ctx, project.OwnerID)
		if err != nil {
			s.notify.log.Warn().Err(err).Msg("load project owner")
			return
		}
		s.notify.send(ctx, model.Notification{To: client.Email, Template: template, Subject: subject, Data: data})
	case model.RoleMember:
		s.notifyMember(ctx, project.OwnerID, template, subject, project.ID)
	}
}

func (s *ProjectService) notifyMember(ctx context.Context, memberID uuid.UUID, template, subject string, projectID uuid.UUID) {
	member, err := s.accounts.GetMember(ctx, memberID)
	if err != nil {
		s.notify.log.Warn().Err(err).Str("member_id", memberID.String()).Msg("load notification recipient")
		return
	}
	s.notify.send(ctx, model.Notification{
		To:       member.Email,
		Template: template,
		Subject:  subject,
		Data:     map[string]any{"project_id": projectID},
	})
}

func clearClosure(project *model.Project) {
	project.ClosureReason = nil
	project.ClosureJustification = nil
	project.ClosedByID = nil
	project.ClosedByRole = nil
	project.ClosedAt = nil
}

func isTeammate(principal model.Principal, bids []model.Bid) bool {
	if !principal.IsMember() {
		return false
	}
	for _, b := range lifecycle.ActiveTeam(bids) {
		if b.MemberID == principal.ID {
			return true
		}
	}
	return false
}

func canView(principal model.Principal, project model.Project, bids []model.Bid) bool {
	if project.Visibility == model.VisibilityPublic || principal.IsAdmin() || project.OwnedBy(principal) {
		return true
	}
	if project.ClientID != nil && principal.Is(model.RoleClient, *project.ClientID) {
		return true
	}
	if !principal.IsMember() {
		return false
	}
	for _, b := range bids {
		if b.MemberID == principal.ID {
			return true
		}
	}
	return false
}

func canManageTeam(principal model.Principal, project model.Project, bids []model.Bid) bool {
	return principal.IsAdmin() || project.OwnedBy(principal) || isTeammate(principal, bids)
}

func canClose(principal model.Principal, project model.Project, bids []model.Bid) bool {
	if principal.IsAdmin() || project.OwnedBy(principal) {
		return true
	}
	if project.ClientID != nil && principal.Is(model.RoleClient, *project.ClientID) {
		return true
	}
	return isTeammate(principal, bids)
}
