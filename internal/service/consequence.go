package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/lifecycle"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/repository"
)

// Consequences lists what a closure did to the accounts involved.
type Consequences struct {
	BlockedClientID   *uuid.UUID  `json:"blocked_client_id,omitempty"`
	BlockedIP         *string     `json:"blocked_ip,omitempty"`
	RestrictedMembers []uuid.UUID `json:"restricted_members,omitempty"`
}

// ConsequenceDispatcher applies the account side effects of specific project closures.
type ConsequenceDispatcher struct {
	accounts *repository.AccountRepository
	notify   dispatch
	now      clock
}

func NewConsequenceDispatcher(accounts *repository.AccountRepository, notifier Notifier, log zerolog.Logger) *ConsequenceDispatcher {
	return &ConsequenceDispatcher{
		accounts: accounts,
		notify:   dispatch{notifier: notifier, log: log},
	}
}

// Apply must be called with the closure transaction so the account writes commit or roll
// back together with the project state.
func (d *ConsequenceDispatcher) Apply(ctx context.Context, tx *gorm.DB, project model.Project, bids []model.Bid, justification string) (Consequences, error) {
	accounts := d.accounts.WithTx(tx)
	switch project.Status {
	case model.ProjectUnpaid:
		return d.blockClient(ctx, accounts, project, justification)
	case model.ProjectNotCompletedByMember:
		return d.restrictMembers(ctx, accounts, project, bids, justification)
	default:
		return Consequences{}, nil
	}
}

func (d *ConsequenceDispatcher) blockClient(ctx context.Context, accounts *repository.AccountRepository, project model.Project, justification string) (Consequences, error) {
	if project.ClientID == nil {
		return Consequences{}, fmt.Errorf("%w: project has no client on record", ErrInvalidState)
	}
	client, err := accounts.GetClient(ctx, *project.ClientID)
	if err != nil {
		return Consequences{}, notFound(err, "client")
	}
	at := d.now.now()
	reason := fmt.Sprintf("unpaid project %q: %s", project.Title, justification)
	if err := accounts.BlockClient(ctx, client.ID, reason, at); err != nil {
		return Consequences{}, err
	}
	result := Consequences{BlockedClientID: &client.ID}
	if client.LastIP != nil && *client.LastIP != "" {
		if err := accounts.AddBlockedIP(ctx, &model.BlockedIP{
			ClientID:  client.ID,
			IPAddress: *client.LastIP,
			Reason:    reason,
			CreatedAt: at,
		}); err != nil {
			return Consequences{}, err
		}
		ip := *client.LastIP
		result.BlockedIP = &ip
	}
	return result, nil
}

func (d *ConsequenceDispatcher) restrictMembers(ctx context.Context, accounts *repository.AccountRepository, project model.Project, bids []model.Bid, justification string) (Consequences, error) {
	targets := make([]uuid.UUID, 0)
	for _, b := range lifecycle.ActiveTeam(bids) {
		targets = append(targets, b.MemberID)
	}
	if len(targets) == 0 && project.OwnerRole == model.RoleMember {
		targets = append(targets, project.OwnerID)
	}
	if len(targets) == 0 {
		return Consequences{}, fmt.Errorf("%w: project has no assigned member", ErrInvalidState)
	}
	at := d.now.now()
	reason := fmt.Sprintf("project %q not completed: %s", project.Title, justification)
	for _, memberID := range targets {
		if err := accounts.RestrictMember(ctx, memberID, reason, at); err != nil {
			return Consequences{}, notFound(err, "member")
		}
	}
	return Consequences{RestrictedMembers: targets}, nil
}

// NotifyCompletion is the notification-only path used when a project completes.
func (d *ConsequenceDispatcher) NotifyCompletion(ctx context.Context, project model.Project, bids []model.Bid) {
	d.notify.send(ctx, d.audience(ctx, project, bids, "project_completed", fmt.Sprintf("Project %q completed", project.Title), nil)...)
}

// NotifyClosure tells the client and the team how a project ended.
func (d *ConsequenceDispatcher) NotifyClosure(ctx context.Context, project model.Project, bids []model.Bid) {
	data := map[string]any{"status": project.Status}
	if project.ClosureJustification != nil {
		data["justification"] = *project.ClosureJustification
	}
	d.notify.send(ctx, d.audience(ctx, project, bids, "project_closed", fmt.Sprintf("Project %q closed", project.Title), data)...)
}

func (d *ConsequenceDispatcher) audience(ctx context.Context, project model.Project, bids []model.Bid, template, subject string, extra map[string]any) []model.Notification {
	data := map[string]any{"project_id": project.ID, "title": project.Title}
	for k, v := range extra {
		data[k] = v
	}
	msgs := make([]model.Notification, 0)
	if project.ClientID != nil {
		if client, err := d.accounts.GetClient(ctx, *project.ClientID); err == nil {
			msgs = append(msgs, model.Notification{To: client.Email, Template: template, Subject: subject, Data: data})
		}
	}
	ids := make([]uuid.UUID, 0)
	for _, b := range lifecycle.ActiveTeam(bids) {
		ids = append(ids, b.MemberID)
	}
	if project.OwnerRole == model.RoleMember {
		ids = append(ids, project.OwnerID)
	}
	members, err := d.accounts.ListMembers(ctx, ids)
	if err != nil {
		d.notify.log.Warn().Err(err).Msg("load notification audience")
		return msgs
	}
	for _, m := range members {
		msgs = append(msgs, model.Notification{To: m.Email, Template: template, Subject: subject, Data: data})
	}
	return msgs
}
