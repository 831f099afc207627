package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/vigilexam/vigil-backend/internal/model"
)

// AdminStore is the persistence surface for admin accounts.
type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
	Create(ctx context.Context, a *model.Admin) error
}

// AdminService handles admin account lookups.
type AdminService struct {
	admins AdminStore
}

// NewAdminService creates a new AdminService.
func NewAdminService(admins AdminStore) *AdminService {
	return &AdminService{admins: admins}
}

// GetByEmail retrieves an admin by email. Unknown emails surface as
// ErrInvalidCredentials so login failures stay uniform.
func (s *AdminService) GetByEmail(ctx context.Context, email string) (*model.Admin, error) {
	a, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return a, nil
}

// Create inserts a new admin account.
func (s *AdminService) Create(ctx context.Context, a *model.Admin) error {
	return s.admins.Create(ctx, a)
}
