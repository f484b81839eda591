package activity

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/simp-lee/vaultfeed/internal/domain"
	"github.com/simp-lee/vaultfeed/internal/pkg"
)

// batchSize bounds the rows per INSERT in CreateBatch.
const batchSize = 100

// activityRepository implements domain.ActivityRepository using GORM.
type activityRepository struct {
	db *gorm.DB
}

// NewRepository creates an ActivityRepository backed by db.
func NewRepository(db *gorm.DB) domain.ActivityRepository {
	return &activityRepository{db: db}
}

// Create inserts a single activity.
func (r *activityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	if err := r.db.WithContext(ctx).Create(activity).Error; err != nil {
		return mapError(err)
	}
	return nil
}

// CreateBatch inserts all activities or none of them.
func (r *activityRepository) CreateBatch(ctx context.Context, activities []domain.Activity) error {
	if len(activities) == 0 {
		return nil
	}
	err := pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		return tx.CreateInBatches(activities, batchSize).Error
	})
	return mapError(err)
}

// ListByVault returns every activity of vault in insertion order. The feed
// filters, sorts and pages in memory, so nothing is narrowed here.
func (r *activityRepository) ListByVault(ctx context.Context, vault string) ([]domain.Activity, error) {
	activities := []domain.Activity{}
	err := r.db.WithContext(ctx).
		Where("vault = ?", vault).
		Order("id").
		Find(&activities).Error
	if err != nil {
		return nil, mapError(err)
	}
	return activities, nil
}

// Vaults returns the distinct vault names that have stored activity.
func (r *activityRepository) Vaults(ctx context.Context) ([]string, error) {
	var vaults []string
	err := r.db.WithContext(ctx).
		Model(&domain.Activity{}).
		Distinct("vault").
		Order("vault").
		Pluck("vault", &vaults).Error
	if err != nil {
		return nil, mapError(err)
	}
	return vaults, nil
}

// mapError converts GORM errors to domain errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicateKeyError(err) {
		return domain.NewAppError(domain.CodeAlreadyExists, "activity already recorded", err)
	}
	return domain.NewAppError(domain.CodeInternal, "database error", err)
}

// isDuplicateKeyError matches unique constraint violations by message; the
// pure-Go SQLite driver does not translate them to gorm.ErrDuplicatedKey.
func isDuplicateKeyError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
