package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/storeops/backend/internal/domain/accounting"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/persistence/models"
)

const defaultCredentialHistoryLimit = 20

// GormCredentialRepository implements accounting.CredentialRepository using GORM
type GormCredentialRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormCredentialRepository creates a new GormCredentialRepository
func NewGormCredentialRepository(db *gorm.DB) *GormCredentialRepository {
	return &GormCredentialRepository{db: db, now: time.Now}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormCredentialRepository) WithTx(tx *gorm.DB) *GormCredentialRepository {
	return &GormCredentialRepository{db: tx, now: r.now}
}

// FindActive returns the active credential of a backend
func (r *GormCredentialRepository) FindActive(ctx context.Context, backend string) (*accounting.OAuthCredential, error) {
	var model models.OAuthCredentialModel
	if err := r.db.WithContext(ctx).
		Where("backend = ? AND is_active = ?", backend, true).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, accounting.ErrNoActiveCredential
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ReplaceActive deactivates every active credential of the backend and
// inserts cred, in one transaction. The partial unique index on
// (backend) WHERE is_active rejects a concurrent replacement.
func (r *GormCredentialRepository) ReplaceActive(ctx context.Context, cred *accounting.OAuthCredential) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := deactivate(tx.Where("backend = ?", cred.Backend), accounting.ReasonReplaced, r.now()); err != nil {
			return err
		}
		return tx.Create(models.OAuthCredentialModelFromDomain(cred)).Error
	})
}

// SaveRefreshed writes new token material if the row is still active at
// the loaded version
func (r *GormCredentialRepository) SaveRefreshed(ctx context.Context, cred *accounting.OAuthCredential) error {
	currentVersion := cred.Version
	result := r.db.WithContext(ctx).
		Model(&models.OAuthCredentialModel{}).
		Where("id = ? AND version = ? AND is_active = ?", cred.ID, currentVersion, true).
		Updates(map[string]any{
			"access_token":      cred.AccessToken,
			"refresh_token":     cred.RefreshToken,
			"token_type":        cred.TokenType,
			"scope":             cred.Scope,
			"expires_at":        cred.ExpiresAt,
			"last_refreshed_at": cred.LastRefreshedAt,
			"updated_at":        cred.UpdatedAt,
			"version":           currentVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	cred.IncrementVersion()
	return nil
}

// Deactivate deactivates one credential. Already inactive rows are left as they are.
func (r *GormCredentialRepository) Deactivate(ctx context.Context, id uuid.UUID, reason accounting.DeactivationReason) error {
	_, err := deactivate(r.db.WithContext(ctx).Where("id = ?", id), reason, r.now())
	return err
}

// DeactivateAll deactivates every active credential of a backend
func (r *GormCredentialRepository) DeactivateAll(ctx context.Context, backend string, reason accounting.DeactivationReason) (int64, error) {
	return deactivate(r.db.WithContext(ctx).Where("backend = ?", backend), reason, r.now())
}

// CountActive counts active credentials of a backend
func (r *GormCredentialRepository) CountActive(ctx context.Context, backend string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OAuthCredentialModel{}).
		Where("backend = ? AND is_active = ?", backend, true).
		Count(&count).Error
	return count, err
}

// History returns the newest credentials of a backend, active or not
func (r *GormCredentialRepository) History(ctx context.Context, backend string, limit int) ([]accounting.OAuthCredential, error) {
	if limit <= 0 {
		limit = defaultCredentialHistoryLimit
	}
	var rows []models.OAuthCredentialModel
	if err := r.db.WithContext(ctx).
		Where("backend = ?", backend).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	creds := make([]accounting.OAuthCredential, len(rows))
	for i := range rows {
		creds[i] = *rows[i].ToDomain()
	}
	return creds, nil
}

// deactivate flips the active rows selected by scope
func deactivate(scope *gorm.DB, reason accounting.DeactivationReason, now time.Time) (int64, error) {
	result := scope.
		Model(&models.OAuthCredentialModel{}).
		Where("is_active = ?", true).
		Updates(map[string]any{
			"is_active":           false,
			"deactivated_at":      now,
			"deactivation_reason": string(reason),
			"updated_at":          now,
			"version":             gorm.Expr("version + 1"),
		})
	return result.RowsAffected, result.Error
}

var _ accounting.CredentialRepository = (*GormCredentialRepository)(nil)
