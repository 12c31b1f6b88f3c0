package model

import (
	"time"

	"github.com/google/uuid"
)

type Client struct {
	ID            uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Email         string     `json:"email" gorm:"size:255;not null"`
	Name          string     `json:"name" gorm:"size:255"`
	Blocked       bool       `json:"blocked" gorm:"not null;default:false"`
	BlockedReason *string    `json:"blocked_reason,omitempty" gorm:"type:text"`
	BlockedAt     *time.Time `json:"blocked_at,omitempty"`
	LastIP        *string    `json:"-" gorm:"column:last_ip;size:64"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Client) TableName() string {
	return "clients"
}

type Member struct {
	ID                uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Email             string     `json:"email" gorm:"size:255;not null"`
	Name              string     `json:"name" gorm:"size:255"`
	Restricted        bool       `json:"restricted" gorm:"not null;default:false"`
	RestrictionReason *string    `json:"restriction_reason,omitempty" gorm:"type:text"`
	RestrictedAt      *time.Time `json:"restricted_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (Member) TableName() string {
	return "members"
}

// BlockedIP is a blocklist entry tied to the account it was recorded for.
type BlockedIP struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ClientID  uuid.UUID `json:"client_id" gorm:"type:uuid;not null;index"`
	IPAddress string    `json:"ip_address" gorm:"column:ip_address;size:64;not null;index"`
	Reason    string    `json:"reason" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

func (BlockedIP) TableName() string {
	return "blocked_ips"
}
