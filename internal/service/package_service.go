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

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
	DecisionOnHold  Decision = "on_hold"
)

type PackageService struct {
	tx       *repository.Transactor
	packages *repository.PackageRepository
	accounts *repository.AccountRepository
	reports  ClosingReportRenderer
	exporter SessionExporter
	notify   dispatch
	parties  purchaseParties
	now      clock
}

func NewPackageService(
	tx *repository.Transactor,
	packages *repository.PackageRepository,
	accounts *repository.AccountRepository,
	reports ClosingReportRenderer,
	exporter SessionExporter,
	notifier Notifier,
	log zerolog.Logger,
) *PackageService {
	notify := dispatch{notifier: notifier, log: log}
	return &PackageService{
		tx:       tx,
		packages: packages,
		accounts: accounts,
		reports:  reports,
		exporter: exporter,
		notify:   notify,
		parties:  purchaseParties{accounts: accounts, notify: notify},
	}
}

// WindowInput is one recurring weekly window. DayOfWeek follows time.Weekday (0 = Sunday).
type WindowInput struct {
	DayOfWeek int            `json:"day_of_week"`
	Start     schedule.Clock `json:"start"`
	End       schedule.Clock `json:"end"`
}

func validateWindows(windows []WindowInput) error {
	for i, w := range windows {
		if w.DayOfWeek < 0 || w.DayOfWeek > 6 {
			return fmt.Errorf("%w: window %d has invalid day_of_week %d", ErrInvalidInput, i, w.DayOfWeek)
		}
		if !schedule.NewWindow(w.Start, w.End).Valid() {
			return fmt.Errorf("%w: window %d must end after it starts", ErrInvalidInput, i)
		}
	}
	return nil
}

func packageWindows(windows []WindowInput) []model.PackageAvailability {
	rows := make([]model.PackageAvailability, 0, len(windows))
	for _, w := range windows {
		rows = append(rows, model.PackageAvailability{
			DayOfWeek: w.DayOfWeek,
			StartTime: w.Start,
			EndTime:   w.End,
			Active:    true,
		})
	}
	return rows
}

type PurchaseInput struct {
	Principal        model.Principal
	MemberID         uuid.UUID
	Title            string
	TotalHours       float64
	Windows          []WindowInput
	PaymentReference string
}

func (s *PackageService) Purchase(ctx context.Context, input PurchaseInput) (*model.PackagePurchase, error) {
	if !input.Principal.IsClient() {
		return nil, fmt.Errorf("%w: only clients can purchase packages", ErrPermissionDenied)
	}
	if input.TotalHours <= 0 {
		return nil, fmt.Errorf("%w: total_hours must be positive", ErrInvalidInput)
	}
	if err := validateWindows(input.Windows); err != nil {
		return nil, err
	}

	purchase := &model.PackagePurchase{
		ClientID:   input.Principal.ID,
		MemberID:   input.MemberID,
		Title:      strings.TrimSpace(input.Title),
		TotalHours: input.TotalHours,
		Status:     model.PurchasePending,
	}
	if ref := strings.TrimSpace(input.PaymentReference); ref != "" {
		purchase.PaymentReference = &ref
	}

	var member *model.Member
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		var err error
		member, err = s.accounts.WithTx(tx).GetMember(ctx, input.MemberID)
		if err != nil {
			return notFound(err, "member")
		}
		return s.packages.WithTx(tx).CreatePurchase(ctx, purchase, packageWindows(input.Windows))
	})
	if err != nil {
		return nil, err
	}

	s.notify.send(ctx, model.Notification{
		To:       member.Email,
		Template: "package_purchased",
		Subject:  fmt.Sprintf("New package request: %.1f hours", purchase.TotalHours),
		Data:     map[string]any{"purchase_id": purchase.ID, "total_hours": purchase.TotalHours},
	})
	return purchase, nil
}

func (s *PackageService) GetPurchase(ctx context.Context, principal model.Principal, id uuid.UUID) (*model.PurchaseDetail, error) {
	purchase, err := s.packages.GetPurchase(ctx, id)
	if err != nil {
		return nil, notFound(err, "purchase")
	}
	if !purchase.Party(principal) && !principal.IsAdmin() {
		return nil, fmt.Errorf("%w: not a party to this purchase", ErrPermissionDenied)
	}
	availability, err := s.packages.ListAvailability(ctx, id)
	if err != nil {
		return nil, err
	}
	sessions, err := s.packages.ListSessions(ctx, id)
	if err != nil {
		return nil, err
	}
	pending, err := s.packages.PendingHours(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.PurchaseDetail{
		Purchase:       *purchase,
		Availability:   availability,
		Sessions:       sessions,
		RemainingHours: schedule.Remaining(purchase.TotalHours, purchase.ConsumedHours, pending),
	}, nil
}

type RespondInput struct {
	Principal  model.Principal
	PurchaseID uuid.UUID
	Decision   Decision
	Note       string
}

var decisionStatus = map[Decision]model.PurchaseStatus{
	DecisionApprove: model.PurchaseApproved,
	DecisionReject:  model.PurchaseRejected,
	DecisionOnHold:  model.PurchaseOnHold,
}

var decisionMessages = map[Decision]struct{ template, subject string }{
	DecisionApprove: {"package_approved", "Your package was approved"},
	DecisionReject:  {"package_rejected", "Your package was declined"},
	DecisionOnHold:  {"package_on_hold", "Your package is on hold"},
}

// Respond records the member's decision on a pending or held purchase.
func (s *PackageService) Respond(ctx context.Context, input RespondInput) (*model.PackagePurchase, error) {
	target, ok := decisionStatus[input.Decision]
	if !ok {
		return nil, fmt.Errorf("%w: decision must be approve, reject or on_hold", ErrInvalidInput)
	}

	var purchase *model.PackagePurchase
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		packages := s.packages.WithTx(tx)
		var err error
		purchase, err = packages.GetPurchaseForUpdate(ctx, input.PurchaseID)
		if err != nil {
			return notFound(err, "purchase")
		}
		if !input.Principal.Is(model.RoleMember, purchase.MemberID) {
			return fmt.Errorf("%w: only the assigned member can respond", ErrPermissionDenied)
		}
		if purchase.Status != model.PurchasePending && purchase.Status != model.PurchaseOnHold {
			return fmt.Errorf("%w: purchase is %s", ErrInvalidState, purchase.Status)
		}
		if purchase.Status == target {
			return fmt.Errorf("%w: purchase is already %s", ErrInvalidState, target)
		}
		at := s.now.now()
		purchase.Status = target
		purchase.RespondedAt = &at
		purchase.ResponseNote = nil
		if note := strings.TrimSpace(input.Note); note != "" {
			purchase.ResponseNote = &note
		}
		return packages.SavePurchase(ctx, purchase)
	})
	if err != nil {
		return nil, err
	}

	msg := decisionMessages[input.Decision]
	s.parties.client(ctx, *purchase, msg.template, msg.subject, map[string]any{"note": purchase.ResponseNote})
	return purchase, nil
}

func (s *PackageService) Cancel(ctx context.Context, principal model.Principal, purchaseID uuid.UUID) (*model.PackagePurchase, error) {
	var purchase *model.PackagePurchase
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		packages := s.packages.WithTx(tx)
		var err error
		purchase, err = packages.GetPurchaseForUpdate(ctx, purchaseID)
		if err != nil {
			return notFound(err, "purchase")
		}
		if !principal.Is(model.RoleClient, purchase.ClientID) {
			return fmt.Errorf("%w: only the purchasing client can cancel", ErrPermissionDenied)
		}
		if purchase.Status != model.PurchasePending && purchase.Status != model.PurchaseOnHold {
			return fmt.Errorf("%w: purchase is %s", ErrInvalidState, purchase.Status)
		}
		at := s.now.now()
		purchase.Status = model.PurchaseCancelled
		purchase.CancelledAt = &at
		return packages.SavePurchase(ctx, purchase)
	})
	if err != nil {
		return nil, err
	}
	s.parties.member(ctx, *purchase, "package_cancelled", "A package request was cancelled", nil)
	return purchase, nil
}

type ClosePurchaseInput struct {
	Principal  model.Principal
	PurchaseID uuid.UUID
	Report     string
}

// Close completes an approved or running purchase and cancels the sessions still on the
// calendar. The client receives the session history and a PDF summary.
func (s *PackageService) Close(ctx context.Context, input ClosePurchaseInput) (*model.PackagePurchase, error) {
	report := strings.TrimSpace(input.Report)
	if report == "" {
		return nil, fmt.Errorf("%w: a completion report is required", ErrInvalidInput)
	}

	var purchase *model.PackagePurchase
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		packages := s.packages.WithTx(tx)
		var err error
		purchase, err = packages.GetPurchaseForUpdate(ctx, input.PurchaseID)
		if err != nil {
			return notFound(err, "purchase")
		}
		if !input.Principal.Is(model.RoleMember, purchase.MemberID) {
			return fmt.Errorf("%w: only the assigned member can close", ErrPermissionDenied)
		}
		if !purchase.Bookable() {
			return fmt.Errorf("%w: purchase is %s", ErrInvalidState, purchase.Status)
		}
		at := s.now.now()
		purchase.Status = model.PurchaseCompleted
		purchase.ClosingReport = &report
		purchase.CompletedAt = &at
		if err := packages.SavePurchase(ctx, purchase); err != nil {
			return err
		}
		_, err = packages.CancelScheduledSessions(ctx, purchase.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	doc, err := s.closingDocument(ctx, *purchase)
	if err != nil {
		s.notify.log.Warn().Err(err).Str("purchase_id", purchase.ID.String()).Msg("load closing document")
		return purchase, nil
	}
	msg := model.Notification{
		To:       doc.Client.Email,
		Template: "package_completed",
		Subject:  "Your package was completed",
		Data: map[string]any{
			"purchase_id":    purchase.ID,
			"report":         report,
			"consumed_hours": purchase.ConsumedHours,
			"total_hours":    purchase.TotalHours,
			"sessions":       doc.Sessions,
		},
	}
	if s.reports != nil {
		content, err := s.reports.ClosingReport(doc)
		if err != nil {
			s.notify.log.Warn().Err(err).Str("purchase_id", purchase.ID.String()).Msg("render closing report")
		} else {
			msg.Attachments = append(msg.Attachments, model.Attachment{
				FileName:    fmt.Sprintf("package-%s.pdf", purchase.ID),
				ContentType: "application/pdf",
				Content:     content,
			})
		}
	}
	s.notify.send(ctx, msg)
	return purchase, nil
}

func (s *PackageService) ReplaceAvailability(ctx context.Context, principal model.Principal, purchaseID uuid.UUID, windows []WindowInput) ([]model.PackageAvailability, error) {
	if err := validateWindows(windows); err != nil {
		return nil, err
	}
	rows := packageWindows(windows)
	err := s.tx.Do(ctx, func(tx *gorm.DB) error {
		packages := s.packages.WithTx(tx)
		purchase, err := packages.GetPurchaseForUpdate(ctx, purchaseID)
		if err != nil {
			return notFound(err, "purchase")
		}
		if !purchase.Party(principal) && !principal.IsAdmin() {
			return fmt.Errorf("%w: not a party to this purchase", ErrPermissionDenied)
		}
		switch purchase.Status {
		case model.PurchaseCompleted, model.PurchaseCancelled, model.PurchaseRejected:
			return fmt.Errorf("%w: purchase is %s", ErrInvalidState, purchase.Status)
		}
		return packages.ReplaceAvailability(ctx, purchase.ID, rows)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *PackageService) ExportSessions(ctx context.Context, principal model.Principal, purchaseID uuid.UUID) (*ExportResult, error) {
	if s.exporter == nil {
		return nil, fmt.Errorf("session export is not configured")
	}
	purchase, err := s.packages.GetPurchase(ctx, purchaseID)
	if err != nil {
		return nil, notFound(err, "purchase")
	}
	if !purchase.Party(principal) && !principal.IsAdmin() {
		return nil, fmt.Errorf("%w: not a party to this purchase", ErrPermissionDenied)
	}
	doc, err := s.closingDocument(ctx, *purchase)
	if err != nil {
		return nil, err
	}
	content, err := s.exporter.SessionHistory(doc)
	if err != nil {
		return nil, fmt.Errorf("export sessions: %w", err)
	}
	return &ExportResult{
		FileName:    fmt.Sprintf("package-%s-sessions.xlsx", purchase.ID),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     content,
	}, nil
}

func (s *PackageService) closingDocument(ctx context.Context, purchase model.PackagePurchase) (model.ClosingDocument, error) {
	client, err := s.accounts.GetClient(ctx, purchase.ClientID)
	if err != nil {
		return model.ClosingDocument{}, notFound(err, "client")
	}
	member, err := s.accounts.GetMember(ctx, purchase.MemberID)
	if err != nil {
		return model.ClosingDocument{}, notFound(err, "member")
	}
	sessions, err := s.packages.ListSessions(ctx, purchase.ID)
	if err != nil {
		return model.ClosingDocument{}, err
	}
	return model.ClosingDocument{Purchase: purchase, Client: *client, Member: *member, Sessions: sessions}, nil
}

// purchaseParties addresses notifications to the client or member of a purchase.
type purchaseParties struct {
	accounts *repository.AccountRepository
	notify   dispatch
}

func (p purchaseParties) client(ctx context.Context, purchase model.PackagePurchase, template, subject string, data map[string]any) {
	client, err := p.accounts.GetClient(ctx, purchase.ClientID)
	if err != nil {
		p.notify.log.Warn().Err(err).Str("purchase_id", purchase.ID.String()).Msg("load purchase client")
		return
	}
	p.notify.send(ctx, purchaseNotification(client.Email, purchase, template, subject, data))
}

func (p purchaseParties) member(ctx context.Context, purchase model.PackagePurchase, template, subject string, data map[string]any) {
	member, err := p.accounts.GetMember(ctx, purchase.MemberID)
	if err != nil {
		p.notify.log.Warn().Err(err).Str("purchase_id", purchase.ID.String()).Msg("load purchase member")
		return
	}
	p.notify.send(ctx, purchaseNotification(member.Email, purchase, template, subject, data))
}

func purchaseNotification(to string, purchase model.PackagePurchase, template, subject string, data map[string]any) model.Notification {
	if data == nil {
		data = map[string]any{}
	}
	data["purchase_id"] = purchase.ID
	data["status"] = purchase.Status
	return model.Notification{To: to, Template: template, Subject: subject, Data: data}
}
