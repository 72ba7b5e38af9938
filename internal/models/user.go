package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	Email        string         `json:"email" gorm:"unique;not null"`
	FirstName    string         `json:"first_name"`
	LastName     string         `json:"last_name"`
	Mobile       string         `json:"mobile" gorm:"size:11"`
	PasswordHash string         `json:"-"`
	IsStaff      bool           `json:"is_staff" gorm:"default:false"`
	IsSuperuser  bool           `json:"is_superuser" gorm:"default:false"`
	IsActive     bool           `json:"is_active" gorm:"not null"`
	BranchID     *uint          `json:"branch_id"`
	Branch       *Branch        `json:"-" gorm:"constraint:OnDelete:SET NULL"`
	Addresses    []Address      `json:"addresses,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

// Address is a saved shipping address. The most recent one is the profile default.
type Address struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	Address   string    `json:"address" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at"`
}

// CanManage reports whether u may change orders placed against branchID.
func (u *User) CanManage(branchID *uint) bool {
	if u.IsSuperuser {
		return true
	}
	if !u.IsStaff || u.BranchID == nil {
		return false
	}
	return branchID != nil && *branchID == *u.BranchID
}
