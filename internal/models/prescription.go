package models

import "time"

// Prescription is an uploaded prescription image waiting for a pharmacist.
// Only Pending prescriptions can be reviewed.
type Prescription struct {
	ID            uint               `json:"id" gorm:"primaryKey"`
	UserID        uint               `json:"user" gorm:"not null;index"`
	User          *User              `json:"-" gorm:"constraint:OnDelete:CASCADE"`
	BranchID      *uint              `json:"branch_id" gorm:"index"`
	Branch        *Branch            `json:"-" gorm:"constraint:OnDelete:SET NULL"`
	Image         string             `json:"image" gorm:"not null"`
	ContactNumber string             `json:"contact_number" gorm:"size:11"`
	Notes         string             `json:"notes" gorm:"type:text"`
	Status        PrescriptionStatus `json:"status" gorm:"size:20;not null;index"`
	AdminFeedback string             `json:"admin_feedback" gorm:"type:text"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type PrescriptionStatus string

const (
	PrescriptionPending  PrescriptionStatus = "Pending"
	PrescriptionApproved PrescriptionStatus = "Approved"
	PrescriptionRejected PrescriptionStatus = "Rejected"
)

// ValidReview reports whether s is a status a reviewer may set.
func (s PrescriptionStatus) ValidReview() bool {
	return s == PrescriptionApproved || s == PrescriptionRejected
}
