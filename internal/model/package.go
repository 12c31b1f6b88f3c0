package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/schedule"
)

type PurchaseStatus string

const (
	PurchasePending    PurchaseStatus = "pending"
	PurchaseApproved   PurchaseStatus = "approved"
	PurchaseRejected   PurchaseStatus = "rejected"
	PurchaseOnHold     PurchaseStatus = "on_hold"
	PurchaseInProgress PurchaseStatus = "in_progress"
	PurchaseCompleted  PurchaseStatus = "completed"
	PurchaseCancelled  PurchaseStatus = "cancelled"
)

type PackagePurchase struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	ClientID         uuid.UUID      `json:"client_id" gorm:"type:uuid;not null;index"`
	MemberID         uuid.UUID      `json:"member_id" gorm:"type:uuid;not null;index"`
	Title            string         `json:"title" gorm:"size:255"`
	TotalHours       float64        `json:"total_hours" gorm:"not null"`
	ConsumedHours    float64        `json:"consumed_hours" gorm:"not null;default:0"`
	Status           PurchaseStatus `json:"status" gorm:"size:16;not null;index"`
	ResponseNote     *string        `json:"response_note,omitempty" gorm:"type:text"`
	ClosingReport    *string        `json:"closing_report,omitempty" gorm:"type:text"`
	PaymentReference *string        `json:"payment_reference,omitempty" gorm:"size:128"`
	RespondedAt      *time.Time     `json:"responded_at,omitempty"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
	CancelledAt      *time.Time     `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func (PackagePurchase) TableName() string {
	return "package_purchases"
}

// Party reports whether the principal is the purchase's client or member.
func (p PackagePurchase) Party(principal Principal) bool {
	return principal.Is(RoleClient, p.ClientID) || principal.Is(RoleMember, p.MemberID)
}

// Bookable reports whether sessions may still be scheduled or completed on the purchase.
func (p PackagePurchase) Bookable() bool {
	return p.Status == PurchaseApproved || p.Status == PurchaseInProgress
}

type PackageAvailability struct {
	ID         uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	PurchaseID uuid.UUID      `json:"purchase_id" gorm:"type:uuid;not null;index"`
	DayOfWeek  int            `json:"day_of_week" gorm:"not null"`
	StartTime  schedule.Clock `json:"start_time" gorm:"type:varchar(8);not null"`
	EndTime    schedule.Clock `json:"end_time" gorm:"type:varchar(8);not null"`
	Active     bool           `json:"active" gorm:"not null"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (PackageAvailability) TableName() string {
	return "package_availability"
}

func (a PackageAvailability) Window() schedule.Window {
	return schedule.NewWindow(a.StartTime, a.EndTime)
}

type SessionStatus string

const (
	SessionScheduled   SessionStatus = "scheduled"
	SessionCompleted   SessionStatus = "completed"
	SessionCancelled   SessionStatus = "cancelled"
	SessionNoShow      SessionStatus = "no_show"
	SessionRescheduled SessionStatus = "rescheduled"
)

type PackageSession struct {
	ID                uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	PurchaseID        uuid.UUID       `json:"purchase_id" gorm:"type:uuid;not null;index"`
	MemberID          uuid.UUID       `json:"member_id" gorm:"type:uuid;not null;index"`
	SessionDate       string          `json:"session_date" gorm:"type:varchar(10);not null;index"`
	StartTime         schedule.Clock  `json:"start_time" gorm:"type:varchar(8);not null"`
	EndTime           schedule.Clock  `json:"end_time" gorm:"type:varchar(8);not null"`
	DurationHours     float64         `json:"duration_hours" gorm:"not null"`
	Status            SessionStatus   `json:"status" gorm:"size:16;not null;index"`
	Notes             string          `json:"notes" gorm:"type:text"`
	ProposedDate      *string         `json:"proposed_date,omitempty" gorm:"type:varchar(10)"`
	ProposedStart     *schedule.Clock `json:"proposed_start,omitempty" gorm:"type:varchar(8)"`
	ProposedEnd       *schedule.Clock `json:"proposed_end,omitempty" gorm:"type:varchar(8)"`
	ChangeReason      *string         `json:"change_reason,omitempty" gorm:"type:text"`
	ChangeRequestedAt *time.Time      `json:"change_requested_at,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (PackageSession) TableName() string {
	return "package_sessions"
}

func (s PackageSession) Window() schedule.Window {
	return schedule.NewWindow(s.StartTime, s.EndTime)
}

func (s PackageSession) HasProposal() bool {
	return s.ProposedDate != nil && s.ProposedStart != nil && s.ProposedEnd != nil
}

func (s *PackageSession) ClearProposal() {
	s.ProposedDate = nil
	s.ProposedStart = nil
	s.ProposedEnd = nil
	s.ChangeReason = nil
	s.ChangeRequestedAt = nil
}

type MemberAvailability struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	MemberID  uuid.UUID      `json:"member_id" gorm:"type:uuid;not null;index"`
	DayOfWeek int            `json:"day_of_week" gorm:"not null"`
	StartTime schedule.Clock `json:"start_time" gorm:"type:varchar(8);not null"`
	EndTime   schedule.Clock `json:"end_time" gorm:"type:varchar(8);not null"`
	Active    bool           `json:"active" gorm:"not null"`
	CreatedAt time.Time      `json:"created_at"`
}

func (MemberAvailability) TableName() string {
	return "member_availability"
}

func (a MemberAvailability) Window() schedule.Window {
	return schedule.NewWindow(a.StartTime, a.EndTime)
}

type ExceptionKind string

const (
	ExceptionBlocked   ExceptionKind = "blocked"
	ExceptionAvailable ExceptionKind = "available"
)

type AvailabilityException struct {
	ID            uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	MemberID      uuid.UUID       `json:"member_id" gorm:"type:uuid;not null;index"`
	ExceptionDate string          `json:"exception_date" gorm:"type:varchar(10);not null;index"`
	Kind          ExceptionKind   `json:"kind" gorm:"size:16;not null"`
	StartTime     *schedule.Clock `json:"start_time,omitempty" gorm:"type:varchar(8)"`
	EndTime       *schedule.Clock `json:"end_time,omitempty" gorm:"type:varchar(8)"`
	Reason        string          `json:"reason" gorm:"type:text"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (AvailabilityException) TableName() string {
	return "availability_exceptions"
}

type PurchaseDetail struct {
	Purchase       PackagePurchase       `json:"purchase"`
	Availability   []PackageAvailability `json:"availability"`
	Sessions       []PackageSession      `json:"sessions"`
	RemainingHours float64               `json:"remaining_hours"`
}

type SlotsResult struct {
	Date           string          `json:"date"`
	Slots          []schedule.Slot `json:"slots"`
	RemainingHours *float64        `json:"remaining_hours,omitempty"`
}

// ClosingDocument is the input of the package closing summary and session export.
type ClosingDocument struct {
	Purchase PackagePurchase
	Client   Client
	Member   Member
	Sessions []PackageSession
}
