package model

import (
	"time"

	"github.com/google/uuid"
)

type SolicitudStatus string

const (
	SolicitudPendiente  SolicitudStatus = "pendiente"
	SolicitudParcial    SolicitudStatus = "parcial"
	SolicitudEnProgreso SolicitudStatus = "en_progreso"
	SolicitudCompletado SolicitudStatus = "completado"
	SolicitudCancelado  SolicitudStatus = "cancelado"
)

// Solicitud is a client's hour budget distributed across several members.
type Solicitud struct {
	ID           uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	ClientID     uuid.UUID       `json:"client_id" gorm:"type:uuid;not null;index"`
	TotalHours   float64         `json:"total_hours" gorm:"not null"`
	DiscountTier int             `json:"discount_tier" gorm:"not null;default:0"`
	Status       SolicitudStatus `json:"status" gorm:"size:16;not null;index"`
	Notes        string          `json:"notes" gorm:"type:text"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (Solicitud) TableName() string {
	return "paquete_solicitudes"
}

type AsignacionStatus string

const (
	AsignacionPendiente     AsignacionStatus = "pendiente"
	AsignacionAprobado      AsignacionStatus = "aprobado"
	AsignacionRechazado     AsignacionStatus = "rechazado"
	AsignacionEnProgreso    AsignacionStatus = "en_progreso"
	AsignacionPreConfirmado AsignacionStatus = "pre_confirmado"
	AsignacionCompletado    AsignacionStatus = "completado"
)

type Asignacion struct {
	ID              uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	SolicitudID     uuid.UUID        `json:"solicitud_id" gorm:"type:uuid;not null;index"`
	MemberID        uuid.UUID        `json:"member_id" gorm:"type:uuid;not null;index"`
	Task            string           `json:"task" gorm:"type:text"`
	AssignedHours   float64          `json:"assigned_hours" gorm:"not null"`
	ConsumedHours   float64          `json:"consumed_hours" gorm:"not null;default:0"`
	Status          AsignacionStatus `json:"status" gorm:"size:16;not null;index"`
	RejectionReason *string          `json:"rejection_reason,omitempty" gorm:"type:text"`
	RespondedAt     *time.Time       `json:"responded_at,omitempty"`
	PreConfirmedAt  *time.Time       `json:"pre_confirmed_at,omitempty"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (Asignacion) TableName() string {
	return "paquete_asignaciones"
}

// Avance is an append-only progress report.
type Avance struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	AsignacionID    uuid.UUID `json:"asignacion_id" gorm:"type:uuid;not null;index"`
	MemberID        uuid.UUID `json:"member_id" gorm:"type:uuid;not null"`
	HoursReported   float64   `json:"hours_reported" gorm:"not null;default:0"`
	Narrative       string    `json:"narrative" gorm:"type:text"`
	EvidenceURL     *string   `json:"evidence_url,omitempty" gorm:"type:text"`
	PreConfirmation bool      `json:"pre_confirmation" gorm:"not null;default:false"`
	CreatedAt       time.Time `json:"created_at"`
}

func (Avance) TableName() string {
	return "paquete_avances"
}

type AsignacionDetail struct {
	Asignacion Asignacion `json:"asignacion"`
	Avances    []Avance   `json:"avances"`
}

type SolicitudDetail struct {
	Solicitud    Solicitud          `json:"solicitud"`
	Asignaciones []AsignacionDetail `json:"asignaciones"`
}
