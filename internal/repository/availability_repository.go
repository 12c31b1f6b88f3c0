package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
)

type AvailabilityRepository struct {
	db *gorm.DB
}

func NewAvailabilityRepository(db *gorm.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

func (r *AvailabilityRepository) WithTx(tx *gorm.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: tx}
}

func (r *AvailabilityRepository) ListWeekly(ctx context.Context, memberID uuid.UUID) ([]model.MemberAvailability, error) {
	var rows []model.MemberAvailability
	if err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("day_of_week ASC, start_time ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AvailabilityRepository) ListActiveWeekly(ctx context.Context, memberID uuid.UUID, dayOfWeek int) ([]model.MemberAvailability, error) {
	var rows []model.MemberAvailability
	if err := r.db.WithContext(ctx).
		Where("member_id = ? AND day_of_week = ? AND active = ?", memberID, dayOfWeek, true).
		Order("start_time ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AvailabilityRepository) ReplaceWeekly(ctx context.Context, memberID uuid.UUID, rows []model.MemberAvailability) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("member_id = ?", memberID).Delete(&model.MemberAvailability{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		for i := range rows {
			rows[i].ID = uuid.New()
			rows[i].MemberID = memberID
		}
		return tx.Create(&rows).Error
	})
}

// GetException returns nil without error when the date has no override.
func (r *AvailabilityRepository) GetException(ctx context.Context, memberID uuid.UUID, date string) (*model.AvailabilityException, error) {
	var row model.AvailabilityException
	err := r.db.WithContext(ctx).
		Where("member_id = ? AND exception_date = ?", memberID, date).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// PutException replaces any override already stored for the same member and date.
func (r *AvailabilityRepository) PutException(ctx context.Context, exception *model.AvailabilityException) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("member_id = ? AND exception_date = ?", exception.MemberID, exception.ExceptionDate).
			Delete(&model.AvailabilityException{}).Error; err != nil {
			return err
		}
		exception.ID = uuid.New()
		return tx.Create(exception).Error
	})
}

func (r *AvailabilityRepository) DeleteException(ctx context.Context, memberID uuid.UUID, date string) error {
	res := r.db.WithContext(ctx).
		Where("member_id = ? AND exception_date = ?", memberID, date).
		Delete(&model.AvailabilityException{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
