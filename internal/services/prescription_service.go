package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pharmacy_backend/internal/models"
	"pharmacy_backend/internal/repository"

	"go.uber.org/zap"
)

type UploadPrescriptionInput struct {
	// Image is the stored file path, relative to the media root.
	Image         string
	ContactNumber string
	Notes         string
	BranchID      *uint
}

// PrescriptionService handles uploaded prescriptions. Customers see their
// own; staff see all of them and decide the outcome.
type PrescriptionService interface {
	Upload(ctx context.Context, user *models.User, input UploadPrescriptionInput) (*models.Prescription, error)
	List(ctx context.Context, actor *models.User) ([]models.Prescription, error)
	Get(ctx context.Context, actor *models.User, id uint) (*models.Prescription, error)
	Review(ctx context.Context, actor *models.User, id uint, status models.PrescriptionStatus, feedback string) (*models.Prescription, error)
}

type prescriptionService struct {
	store  repository.Store
	sender MessageSender
	logger *zap.Logger
}

// NewPrescriptionService builds the service. sender may be nil.
func NewPrescriptionService(store repository.Store, sender MessageSender, logger *zap.Logger) PrescriptionService {
	return &prescriptionService{store: store, sender: sender, logger: logger}
}

func isStaff(u *models.User) bool {
	return u.IsStaff || u.IsSuperuser
}

func (s *prescriptionService) Upload(ctx context.Context, user *models.User, input UploadPrescriptionInput) (*models.Prescription, error) {
	if input.Image == "" {
		return nil, ErrMissingPrescription
	}
	contact := strings.TrimSpace(input.ContactNumber)
	if contact != "" && !models.ValidContactNumber(contact) {
		return nil, ErrInvalidContactNumber
	}
	if input.BranchID != nil {
		if _, err := s.store.Branches().GetByID(ctx, *input.BranchID); err != nil {
			return nil, translate(err)
		}
	}

	prescription := &models.Prescription{
		UserID:        user.ID,
		BranchID:      input.BranchID,
		Image:         input.Image,
		ContactNumber: contact,
		Notes:         strings.TrimSpace(input.Notes),
		Status:        models.PrescriptionPending,
	}
	if err := s.store.Prescriptions().Create(ctx, prescription); err != nil {
		return nil, fmt.Errorf("failed to store prescription: %w", err)
	}

	s.logger.Info("Prescription uploaded",
		zap.Uint("prescription_id", prescription.ID),
		zap.Uint("user_id", user.ID),
	)
	return prescription, nil
}

func (s *prescriptionService) List(ctx context.Context, actor *models.User) ([]models.Prescription, error) {
	var userID *uint
	if !isStaff(actor) {
		id := actor.ID
		userID = &id
	}
	return s.store.Prescriptions().List(ctx, userID)
}

func (s *prescriptionService) Get(ctx context.Context, actor *models.User, id uint) (*models.Prescription, error) {
	prescription, err := s.store.Prescriptions().GetByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if prescription.UserID != actor.ID && !isStaff(actor) {
		return nil, ErrPrescriptionNotFound
	}
	return prescription, nil
}

// Review records the outcome and leaves a notification for the owner in the
// same transaction. The WhatsApp message goes out after commit.
func (s *prescriptionService) Review(ctx context.Context, actor *models.User, id uint, status models.PrescriptionStatus, feedback string) (*models.Prescription, error) {
	if !isStaff(actor) {
		return nil, ErrPermissionDenied
	}
	if !status.ValidReview() {
		return nil, ErrInvalidReviewStatus
	}
	feedback = strings.TrimSpace(feedback)

	var reviewed *models.Prescription
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		current, err := tx.Prescriptions().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != models.PrescriptionPending {
			return ErrPrescriptionReviewed
		}
		if err := tx.Prescriptions().Review(ctx, id, status, feedback); err != nil {
			if errors.Is(err, repository.ErrStatusChanged) {
				return ErrPrescriptionReviewed
			}
			return err
		}

		title, body := reviewText(id, status, feedback)
		if err := tx.Notifications().Create(ctx, &models.Notification{
			UserID: current.UserID,
			Title:  title,
			Body:   body,
		}); err != nil {
			return fmt.Errorf("failed to store notification: %w", err)
		}

		current.Status = status
		current.AdminFeedback = feedback
		reviewed = current
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}

	s.logger.Info("Prescription reviewed",
		zap.Uint("prescription_id", id),
		zap.Uint("reviewer_id", actor.ID),
		zap.String("status", string(status)),
	)
	s.notify(ctx, reviewed)
	return reviewed, nil
}

func (s *prescriptionService) notify(ctx context.Context, prescription *models.Prescription) {
	if s.sender == nil {
		return
	}
	phone := prescription.ContactNumber
	if phone == "" {
		user, err := s.store.Users().GetByID(ctx, prescription.UserID)
		if err != nil {
			s.logger.Warn("Failed to load prescription owner", zap.Uint("user_id", prescription.UserID), zap.Error(err))
			return
		}
		phone = user.Mobile
	}
	if phone == "" {
		return
	}

	title, body := reviewText(prescription.ID, prescription.Status, prescription.AdminFeedback)
	if err := s.sender.SendTextMessage(ctx, phone, title+"\n"+body); err != nil {
		s.logger.Warn("Failed to send WhatsApp notification",
			zap.Uint("prescription_id", prescription.ID),
			zap.Error(err),
		)
	}
}

func reviewText(id uint, status models.PrescriptionStatus, feedback string) (string, string) {
	body := fmt.Sprintf("Your prescription #%d has been %s.", id, strings.ToLower(string(status)))
	if feedback != "" {
		body += " " + feedback
	}
	return "Prescription " + string(status), body
}
