package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/study-assistant-service/internal/models"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) repositories.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	db := resolveDB(r.db, tx)
	if err := db.WithContext(ctx).Create(user).Error; err != nil {
		return handleDBError(err, "create user")
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	db := resolveDB(r.db, tx)
	if err := db.WithContext(ctx).
		Model(user).
		Select("email", "first_name", "last_name", "updated_at").
		Updates(user).Error; err != nil {
		return handleDBError(err, "update user")
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error) {
	return r.getBy(ctx, tx, "id = ?", id, "get user by id")
}

func (r *userRepository) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	return r.getBy(ctx, tx, "LOWER(email) = LOWER(?)", email, "get user by email")
}

func (r *userRepository) GetByExternalID(ctx context.Context, tx *gorm.DB, externalID string) (*models.User, error) {
	return r.getBy(ctx, tx, "external_id = ?", externalID, "get user by external id")
}

func (r *userRepository) getBy(ctx context.Context, tx *gorm.DB, cond string, value, operation string) (*models.User, error) {
	db := resolveDB(r.db, tx)
	var user models.User

	if err := db.WithContext(ctx).Where(cond, value).First(&user).Error; err != nil {
		return nil, handleDBError(err, operation)
	}

	return &user, nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	db := resolveDB(r.db, tx)
	var count int64

	if err := db.WithContext(ctx).
		Model(&models.User{}).
		Where("LOWER(email) = LOWER(?)", email).
		Count(&count).Error; err != nil {
		return false, handleDBError(err, "check user email")
	}

	return count > 0, nil
}

func (r *userRepository) DeleteByExternalID(ctx context.Context, tx *gorm.DB, externalID string) error {
	db := resolveDB(r.db, tx)
	result := db.WithContext(ctx).Where("external_id = ?", externalID).Delete(&models.User{})
	if result.Error != nil {
		return handleDBError(result.Error, "delete user")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete user")
	}
	return nil
}
