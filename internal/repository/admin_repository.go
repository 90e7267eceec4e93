package repository

import (
	"context"

	"gorm.io/gorm"

	"authgate/internal/model"
)

// AdminRepository defines administrator persistence operations.
type AdminRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.Admin, error)
	CreateIfAbsent(ctx context.Context, admin *model.Admin) error
}

type adminRepository struct {
	db *gorm.DB
}

// NewAdminRepository builds a GORM-backed repository.
func NewAdminRepository(db *gorm.DB) AdminRepository {
	return &adminRepository{db: db}
}

func (r *adminRepository) FindByEmail(ctx context.Context, email string) (*model.Admin, error) {
	var admin model.Admin
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

// CreateIfAbsent inserts the admin unless a row with the same email
// already exists. The caller cannot tell which case occurred.
func (r *adminRepository) CreateIfAbsent(ctx context.Context, admin *model.Admin) error {
	var existing model.Admin
	err := r.db.WithContext(ctx).Where("email = ?", admin.Email).First(&existing).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	return r.db.WithContext(ctx).Create(admin).Error
}
