package services

import (
	"context"
	"errors"
	"strings"

	"pharmacy_backend/internal/models"
	"pharmacy_backend/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

type UserService interface {
	CreateUser(ctx context.Context, user *models.User, password string) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUserByMobile accepts local 03XXXXXXXXX or international 923XXXXXXXXX numbers.
	GetUserByMobile(ctx context.Context, mobile string) (*models.User, error)
	AddAddress(ctx context.Context, userID uint, address string) (*models.Address, error)
	// ListAddresses returns saved addresses newest first; the first is the default.
	ListAddresses(ctx context.Context, userID uint) ([]models.Address, error)
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) CreateUser(ctx context.Context, user *models.User, password string) error {
	if user.Mobile != "" && !models.ValidContactNumber(user.Mobile) {
		return ErrInvalidContactNumber
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hashedPassword)
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	return s.userRepo.Create(ctx, user)
}

func (s *userService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *userService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *userService) GetUserByMobile(ctx context.Context, mobile string) (*models.User, error) {
	mobile = strings.TrimPrefix(strings.TrimSpace(mobile), "+")
	if strings.HasPrefix(mobile, "92") {
		mobile = "0" + mobile[2:]
	}
	user, err := s.userRepo.GetByMobile(ctx, mobile)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// AddAddress saves a shipping address; the newest one becomes the default
// used by quick orders.
func (s *userService) AddAddress(ctx context.Context, userID uint, address string) (*models.Address, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrMissingContactInfo
	}
	saved := &models.Address{UserID: userID, Address: address}
	if err := s.userRepo.AddAddress(ctx, saved); err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *userService) ListAddresses(ctx context.Context, userID uint) ([]models.Address, error) {
	return s.userRepo.ListAddresses(ctx, userID)
}
