package migrations

import (
	"context"
	"errors"
	"fmt"

	"pharmacy_backend/internal/models"
	"pharmacy_backend/internal/repository"
	"pharmacy_backend/internal/services"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
	AdminMobile   string
}

var defaultProducts = []models.Product{
	{Name: "Panadol 500mg", Price: decimal.RequireFromString("35.00"), Stock: 200, IsActive: true},
	{Name: "Brufen 400mg", Price: decimal.RequireFromString("48.50"), Stock: 120, IsActive: true},
	{Name: "Augmentin 625mg", Price: decimal.RequireFromString("410.00"), Stock: 40, IsActive: true},
	{Name: "ORS Sachet", Price: decimal.RequireFromString("25.00"), Stock: 500, IsActive: true},
}

// Seed creates the default branch, superuser, delivery charge and a starter
// catalog. It is safe to run on every start; existing data is left alone.
func Seed(ctx context.Context, store repository.Store, users services.UserService, opts SeedOptions, log *zap.Logger) error {
	log.Info("Creating default data...")

	_, err := users.GetUserByEmail(ctx, opts.AdminEmail)
	if err == nil {
		log.Info("Default data already present", zap.String("admin", opts.AdminEmail))
		return nil
	}
	if !errors.Is(err, services.ErrUserNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	return store.Transaction(ctx, func(tx repository.Store) error {
		branch := &models.Branch{
			Name:     "Main Branch",
			Address:  "Main Boulevard, Lahore",
			Phone:    "042-111-000-111",
			IsActive: true,
		}
		if err := tx.Branches().Create(ctx, branch); err != nil {
			return fmt.Errorf("failed to create branch: %w", err)
		}

		admin := &models.User{
			Email:       opts.AdminEmail,
			FirstName:   "Admin",
			Mobile:      opts.AdminMobile,
			IsStaff:     true,
			IsSuperuser: true,
			IsActive:    true,
			BranchID:    &branch.ID,
		}
		if err := services.NewUserService(tx.Users()).CreateUser(ctx, admin, opts.AdminPassword); err != nil {
			return fmt.Errorf("failed to create admin: %w", err)
		}

		if err := tx.DeliveryCharges().Set(ctx, decimal.RequireFromString("150.00")); err != nil {
			return fmt.Errorf("failed to set delivery charge: %w", err)
		}

		existing, err := tx.Products().List(ctx, false)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			for _, p := range defaultProducts {
				product := p
				if err := tx.Products().Create(ctx, &product); err != nil {
					return fmt.Errorf("failed to create product %s: %w", p.Name, err)
				}
			}
		}

		log.Info("Default data created",
			zap.String("admin", admin.Email),
			zap.Uint("branch_id", branch.ID),
			zap.Int("products", len(defaultProducts)),
		)
		return nil
	})
}
