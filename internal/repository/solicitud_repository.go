package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
)

type SolicitudRepository struct {
	db *gorm.DB
}

func NewSolicitudRepository(db *gorm.DB) *SolicitudRepository {
	return &SolicitudRepository{db: db}
}

func (r *SolicitudRepository) WithTx(tx *gorm.DB) *SolicitudRepository {
	return &SolicitudRepository{db: tx}
}

func (r *SolicitudRepository) Create(ctx context.Context, solicitud *model.Solicitud) error {
	if solicitud.ID == uuid.Nil {
		solicitud.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(solicitud).Error
}

func (r *SolicitudRepository) Get(ctx context.Context, id uuid.UUID) (*model.Solicitud, error) {
	var solicitud model.Solicitud
	if err := r.db.WithContext(ctx).First(&solicitud, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &solicitud, nil
}

// GetForUpdate serializes budget checks on one solicitud. Must run inside a transaction.
func (r *SolicitudRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Solicitud, error) {
	var solicitud model.Solicitud
	if err := forUpdate(r.db.WithContext(ctx)).First(&solicitud, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &solicitud, nil
}

func (r *SolicitudRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SolicitudStatus) error {
	return r.db.WithContext(ctx).
		Model(&model.Solicitud{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *SolicitudRepository) ListAsignaciones(ctx context.Context, solicitudID uuid.UUID) ([]model.Asignacion, error) {
	var rows []model.Asignacion
	if err := r.db.WithContext(ctx).
		Where("solicitud_id = ?", solicitudID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SolicitudRepository) GetAsignacion(ctx context.Context, id uuid.UUID) (*model.Asignacion, error) {
	var row model.Asignacion
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *SolicitudRepository) CreateAsignacion(ctx context.Context, asignacion *model.Asignacion) error {
	if asignacion.ID == uuid.Nil {
		asignacion.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(asignacion).Error
}

func (r *SolicitudRepository) SaveAsignacion(ctx context.Context, asignacion *model.Asignacion) error {
	return r.db.WithContext(ctx).Save(asignacion).Error
}

func (r *SolicitudRepository) AppendAvance(ctx context.Context, avance *model.Avance) error {
	if avance.ID == uuid.Nil {
		avance.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(avance).Error
}

func (r *SolicitudRepository) ListAvances(ctx context.Context, asignacionIDs []uuid.UUID) ([]model.Avance, error) {
	if len(asignacionIDs) == 0 {
		return []model.Avance{}, nil
	}
	var rows []model.Avance
	if err := r.db.WithContext(ctx).
		Where("asignacion_id IN ?", asignacionIDs).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
