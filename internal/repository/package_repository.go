package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
)

type PackageRepository struct {
	db *gorm.DB
}

func NewPackageRepository(db *gorm.DB) *PackageRepository {
	return &PackageRepository{db: db}
}

func (r *PackageRepository) WithTx(tx *gorm.DB) *PackageRepository {
	return &PackageRepository{db: tx}
}

func (r *PackageRepository) CreatePurchase(ctx context.Context, purchase *model.PackagePurchase, windows []model.PackageAvailability) error {
	if purchase.ID == uuid.Nil {
		purchase.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(purchase).Error; err != nil {
			return err
		}
		return insertPackageWindows(tx, purchase.ID, windows)
	})
}

func (r *PackageRepository) GetPurchase(ctx context.Context, id uuid.UUID) (*model.PackagePurchase, error) {
	var purchase model.PackagePurchase
	if err := r.db.WithContext(ctx).First(&purchase, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

// GetPurchaseForUpdate serializes budget checks on one purchase. Must run inside a transaction.
func (r *PackageRepository) GetPurchaseForUpdate(ctx context.Context, id uuid.UUID) (*model.PackagePurchase, error) {
	var purchase model.PackagePurchase
	if err := forUpdate(r.db.WithContext(ctx)).First(&purchase, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *PackageRepository) SavePurchase(ctx context.Context, purchase *model.PackagePurchase) error {
	return r.db.WithContext(ctx).Save(purchase).Error
}

func (r *PackageRepository) ListAvailability(ctx context.Context, purchaseID uuid.UUID) ([]model.PackageAvailability, error) {
	var rows []model.PackageAvailability
	if err := r.db.WithContext(ctx).
		Where("purchase_id = ?", purchaseID).
		Order("day_of_week ASC, start_time ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActiveWindows returns the active windows of a purchase for one weekday.
func (r *PackageRepository) ListActiveWindows(ctx context.Context, purchaseID uuid.UUID, dayOfWeek int) ([]model.PackageAvailability, error) {
	var rows []model.PackageAvailability
	if err := r.db.WithContext(ctx).
		Where("purchase_id = ? AND day_of_week = ? AND active = ?", purchaseID, dayOfWeek, true).
		Order("start_time ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *PackageRepository) ReplaceAvailability(ctx context.Context, purchaseID uuid.UUID, windows []model.PackageAvailability) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("purchase_id = ?", purchaseID).Delete(&model.PackageAvailability{}).Error; err != nil {
			return err
		}
		return insertPackageWindows(tx, purchaseID, windows)
	})
}

func insertPackageWindows(tx *gorm.DB, purchaseID uuid.UUID, windows []model.PackageAvailability) error {
	if len(windows) == 0 {
		return nil
	}
	for i := range windows {
		windows[i].ID = uuid.New()
		windows[i].PurchaseID = purchaseID
	}
	return tx.Create(&windows).Error
}

func (r *PackageRepository) ListSessions(ctx context.Context, purchaseID uuid.UUID) ([]model.PackageSession, error) {
	var rows []model.PackageSession
	if err := r.db.WithContext(ctx).
		Where("purchase_id = ?", purchaseID).
		Order("session_date ASC, start_time ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListBookedOnDate returns the non-cancelled sessions of a purchase on a date.
func (r *PackageRepository) ListBookedOnDate(ctx context.Context, purchaseID uuid.UUID, date string) ([]model.PackageSession, error) {
	var rows []model.PackageSession
	if err := r.db.WithContext(ctx).
		Where("purchase_id = ? AND session_date = ? AND status <> ?", purchaseID, date, model.SessionCancelled).
		Order("start_time ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListMemberBookedOnDate returns a member's non-cancelled sessions across all purchases.
func (r *PackageRepository) ListMemberBookedOnDate(ctx context.Context, memberID uuid.UUID, date string) ([]model.PackageSession, error) {
	var rows []model.PackageSession
	if err := r.db.WithContext(ctx).
		Where("member_id = ? AND session_date = ? AND status <> ?", memberID, date, model.SessionCancelled).
		Order("start_time ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// PendingHours sums the duration of sessions still scheduled on a purchase.
func (r *PackageRepository) PendingHours(ctx context.Context, purchaseID uuid.UUID) ([]float64, error) {
	var hours []float64
	if err := r.db.WithContext(ctx).
		Model(&model.PackageSession{}).
		Where("purchase_id = ? AND status = ?", purchaseID, model.SessionScheduled).
		Pluck("duration_hours", &hours).Error; err != nil {
		return nil, err
	}
	return hours, nil
}

func (r *PackageRepository) GetSession(ctx context.Context, id uuid.UUID) (*model.PackageSession, error) {
	var session model.PackageSession
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *PackageRepository) CreateSession(ctx context.Context, session *model.PackageSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *PackageRepository) SaveSession(ctx context.Context, session *model.PackageSession) error {
	return r.db.WithContext(ctx).Save(session).Error
}

// CancelScheduledSessions cancels every session still scheduled on a purchase and drops
// any pending change proposal on them.
func (r *PackageRepository) CancelScheduledSessions(ctx context.Context, purchaseID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.PackageSession{}).
		Where("purchase_id = ? AND status = ?", purchaseID, model.SessionScheduled).
		Updates(map[string]any{
			"status":              model.SessionCancelled,
			"proposed_date":       nil,
			"proposed_start":      nil,
			"proposed_end":        nil,
			"change_reason":       nil,
			"change_requested_at": nil,
		})
	return res.RowsAffected, res.Error
}
