package model

import (
	"time"

	"github.com/google/uuid"
)

type ProjectVisibility string

const (
	VisibilityPrivate ProjectVisibility = "private"
	VisibilityPublic  ProjectVisibility = "public"
)

type ProjectStatus string

const (
	ProjectDraft                ProjectStatus = "draft"
	ProjectPublished            ProjectStatus = "published"
	ProjectPlanned              ProjectStatus = "planned"
	ProjectStarted              ProjectStatus = "started"
	ProjectInProgress           ProjectStatus = "in_progress"
	ProjectImplementing         ProjectStatus = "implementing"
	ProjectTesting              ProjectStatus = "testing"
	ProjectCompleted            ProjectStatus = "completed"
	ProjectCompletedPartial     ProjectStatus = "completed_partial"
	ProjectNotCompleted         ProjectStatus = "not_completed"
	ProjectCancelled            ProjectStatus = "cancelled"
	ProjectCancelledNoAgreement ProjectStatus = "cancelled_no_agreement"
	ProjectCancelledNoBudget    ProjectStatus = "cancelled_no_budget"
	ProjectUnpaid               ProjectStatus = "unpaid"
	ProjectNotCompletedByMember ProjectStatus = "not_completed_by_member"
)

type Project struct {
	ID                   uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	Title                string            `json:"title" gorm:"size:255;not null"`
	Description          string            `json:"description" gorm:"type:text"`
	Visibility           ProjectVisibility `json:"visibility" gorm:"size:16;not null"`
	Status               ProjectStatus     `json:"status" gorm:"size:32;not null;index"`
	OwnerID              uuid.UUID         `json:"owner_id" gorm:"type:uuid;not null;index"`
	OwnerRole            Role              `json:"owner_role" gorm:"size:16;not null"`
	ClientID             *uuid.UUID        `json:"client_id,omitempty" gorm:"type:uuid;index"`
	MaxParticipants      int               `json:"max_participants" gorm:"not null;default:1"`
	Budget               float64           `json:"budget"`
	ClosureReason        *ProjectStatus    `json:"closure_reason,omitempty" gorm:"size:32"`
	ClosureJustification *string           `json:"closure_justification,omitempty" gorm:"type:text"`
	ClosedByID           *uuid.UUID        `json:"closed_by_id,omitempty" gorm:"type:uuid"`
	ClosedByRole         *Role             `json:"closed_by_role,omitempty" gorm:"size:16"`
	ClosedAt             *time.Time        `json:"closed_at,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

func (Project) TableName() string {
	return "projects"
}

// OwnedBy reports whether the principal created the project.
func (p Project) OwnedBy(principal Principal) bool {
	return principal.Is(p.OwnerRole, p.OwnerID)
}

type ProjectRequirement struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID uuid.UUID `json:"project_id" gorm:"type:uuid;not null;index"`
	Position  int       `json:"position" gorm:"not null"`
	Label     string    `json:"label" gorm:"type:text;not null"`
	Done      bool      `json:"done" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`
}

func (ProjectRequirement) TableName() string {
	return "project_requirements"
}

type BidStatus string

const (
	BidPending  BidStatus = "pending"
	BidAccepted BidStatus = "accepted"
	BidRejected BidStatus = "rejected"
)

type Bid struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	ProjectID      uuid.UUID  `json:"project_id" gorm:"type:uuid;not null;index"`
	MemberID       uuid.UUID  `json:"member_id" gorm:"type:uuid;not null;index"`
	Amount         float64    `json:"amount"`
	Proposal       string     `json:"proposal" gorm:"type:text"`
	Status         BidStatus  `json:"status" gorm:"size:16;not null;index"`
	Removed        bool       `json:"removed" gorm:"not null;default:false"`
	RemovedReason  *string    `json:"removed_reason,omitempty" gorm:"type:text"`
	RemovedByID    *uuid.UUID `json:"removed_by_id,omitempty" gorm:"type:uuid"`
	RemovedAt      *time.Time `json:"removed_at,omitempty"`
	WorkFinished   bool       `json:"work_finished" gorm:"not null;default:false"`
	WorkFinishedAt *time.Time `json:"work_finished_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Bid) TableName() string {
	return "project_bids"
}

// Active is true for accepted bids that were not soft-removed.
func (b Bid) Active() bool {
	return b.Status == BidAccepted && !b.Removed
}

type ProjectDetail struct {
	Project      Project              `json:"project"`
	Requirements []ProjectRequirement `json:"requirements"`
	Bids         []Bid                `json:"bids"`
}
