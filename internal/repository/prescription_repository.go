package repository

import (
	"context"
	"time"

	"pharmacy_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PrescriptionRepository interface {
	Create(ctx context.Context, prescription *models.Prescription) error
	GetByID(ctx context.Context, id uint) (*models.Prescription, error)
	// List returns prescriptions newest first, limited to userID when set.
	List(ctx context.Context, userID *uint) ([]models.Prescription, error)
	// Review sets the outcome of a Pending prescription, failing with
	// ErrStatusChanged when it was already reviewed.
	Review(ctx context.Context, id uint, status models.PrescriptionStatus, feedback string) error
}

type prescriptionRepository struct {
	db *gorm.DB
}

func NewPrescriptionRepository(db *gorm.DB) PrescriptionRepository {
	return &prescriptionRepository{db: db}
}

func (r *prescriptionRepository) Create(ctx context.Context, prescription *models.Prescription) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(prescription).Error
}

func (r *prescriptionRepository) GetByID(ctx context.Context, id uint) (*models.Prescription, error) {
	var prescription models.Prescription
	if err := r.db.WithContext(ctx).First(&prescription, id).Error; err != nil {
		return nil, notFound(err, ErrPrescriptionNotFound)
	}
	return &prescription, nil
}

func (r *prescriptionRepository) List(ctx context.Context, userID *uint) ([]models.Prescription, error) {
	var prescriptions []models.Prescription
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}
	err := query.Find(&prescriptions).Error
	return prescriptions, err
}

func (r *prescriptionRepository) Review(ctx context.Context, id uint, status models.PrescriptionStatus, feedback string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Prescription{}).
		Where("id = ? AND status = ?", id, models.PrescriptionPending).
		Updates(map[string]interface{}{
			"status":         status,
			"admin_feedback": feedback,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return classify(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}
