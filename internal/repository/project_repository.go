package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Grupo-Corazones-Cruzados/corazonescruzados-sub002/internal/model"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) WithTx(tx *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: tx}
}

func (r *ProjectRepository) Create(ctx context.Context, project *model.Project, requirements []model.ProjectRequirement) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return err
		}
		for i := range requirements {
			requirements[i].ID = uuid.New()
			requirements[i].ProjectID = project.ID
			requirements[i].Position = i + 1
		}
		if len(requirements) == 0 {
			return nil
		}
		return tx.Create(&requirements).Error
	})
}

func (r *ProjectRepository) Get(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var project model.Project
	if err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// GetForUpdate must run inside a transaction.
func (r *ProjectRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	var project model.Project
	if err := forUpdate(r.db.WithContext(ctx)).First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) Save(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Save(project).Error
}

func (r *ProjectRepository) ListRequirements(ctx context.Context, projectID uuid.UUID) ([]model.ProjectRequirement, error) {
	var rows []model.ProjectRequirement
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ProjectRepository) SetRequirementDone(ctx context.Context, projectID, requirementID uuid.UUID, done bool) error {
	res := r.db.WithContext(ctx).
		Model(&model.ProjectRequirement{}).
		Where("id = ? AND project_id = ?", requirementID, projectID).
		Update("done", done)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *ProjectRepository) ListBids(ctx context.Context, projectID uuid.UUID) ([]model.Bid, error) {
	var bids []model.Bid
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&bids).Error; err != nil {
		return nil, err
	}
	return bids, nil
}

func (r *ProjectRepository) GetBid(ctx context.Context, id uuid.UUID) (*model.Bid, error) {
	var bid model.Bid
	if err := r.db.WithContext(ctx).First(&bid, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *ProjectRepository) CreateBid(ctx context.Context, bid *model.Bid) error {
	if bid.ID == uuid.Nil {
		bid.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(bid).Error
}

func (r *ProjectRepository) SaveBid(ctx context.Context, bid *model.Bid) error {
	return r.db.WithContext(ctx).Save(bid).Error
}

// RejectPendingBids rejects every still-pending bid of a project and returns how many changed.
func (r *ProjectRepository) RejectPendingBids(ctx context.Context, projectID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Bid{}).
		Where("project_id = ? AND status = ? AND removed = ?", projectID, model.BidPending, false).
		Update("status", model.BidRejected)
	return res.RowsAffected, res.Error
}
