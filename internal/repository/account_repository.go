package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) WithTx(tx *gorm.DB) *AccountRepository {
	return &AccountRepository{db: tx}
}

func (r *AccountRepository) CreateClient(ctx context.Context, client *model.Client) error {
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(client).Error
}

func (r *AccountRepository) CreateMember(ctx context.Context, member *model.Member) error {
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *AccountRepository) GetClient(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	var client model.Client
	if err := r.db.WithContext(ctx).First(&client, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *AccountRepository) GetMember(ctx context.Context, id uuid.UUID) (*model.Member, error) {
	var member model.Member
	if err := r.db.WithContext(ctx).First(&member, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *AccountRepository) ListMembers(ctx context.Context, ids []uuid.UUID) ([]model.Member, error) {
	if len(ids) == 0 {
		return []model.Member{}, nil
	}
	var members []model.Member
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// TouchClientAddress stores the last network address a client acted from.
func (r *AccountRepository) TouchClientAddress(ctx context.Context, id uuid.UUID, ip string) error {
	return r.db.WithContext(ctx).
		Model(&model.Client{}).
		Where("id = ?", id).
		Update("last_ip", ip).Error
}

func (r *AccountRepository) BlockClient(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.Client{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"blocked":        true,
			"blocked_reason": reason,
			"blocked_at":     at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddBlockedIP is idempotent per client and address.
func (r *AccountRepository) AddBlockedIP(ctx context.Context, entry *model.BlockedIP) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entry).Error
}

func (r *AccountRepository) ListBlockedIPs(ctx context.Context, clientID uuid.UUID) ([]model.BlockedIP, error) {
	var entries []model.BlockedIP
	if err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *AccountRepository) RestrictMember(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&model.Member{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"restricted":         true,
			"restriction_reason": reason,
			"restricted_at":      at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
