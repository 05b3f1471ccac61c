package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/you/accountsvc/domain"
	"gorm.io/gorm"
)

// AccountRepositoryImpl implements domain.AccountRepository using GORM
type AccountRepositoryImpl struct {
	db *gorm.DB
}

// DBAccount represents the database model for Account (with GORM tags)
type DBAccount struct {
	ID                   string     `gorm:"primaryKey;size:36"`
	Email                string     `gorm:"uniqueIndex;size:255;not null"`
	Username             *string    `gorm:"uniqueIndex;size:30"`
	Name                 string     `gorm:"size:100"`
	PasswordHash         string     `gorm:"column:password;not null"`
	Role                 string     `gorm:"index;size:16;default:user"`
	Verified             bool       `gorm:"index"`
	PasswordChangedAt    *time.Time `gorm:"column:password_changed_at"`
	PasswordResetToken   *string    `gorm:"index;size:64"`
	PasswordResetExpires *time.Time `gorm:"column:password_reset_expires"`
	CreatedAt            time.Time  `gorm:"index"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (DBAccount) TableName() string {
	return "accounts"
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) domain.AccountRepository {
	return &AccountRepositoryImpl{db: db}
}

// Create implements domain.AccountRepository
func (r *AccountRepositoryImpl) Create(ctx context.Context, account *domain.Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.Role == "" {
		account.Role = domain.RoleUser
	}
	dbAccount := r.domainToDB(account)
	if err := r.db.WithContext(ctx).Create(dbAccount).Error; err != nil {
		return translateError(err)
	}
	account.CreatedAt = dbAccount.CreatedAt
	account.UpdatedAt = dbAccount.UpdatedAt
	return nil
}

// FindByID implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return r.findOne(ctx, "id = ?", id)
}

// FindByEmail implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, "email = ?", domain.NormalizeEmail(email))
}

// FindByUsername implements domain.AccountRepository
func (r *AccountRepositoryImpl) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.findOne(ctx, "username = ?", strings.TrimSpace(username))
}

// FindByResetTokenHash implements domain.AccountRepository. Only a token
// whose expiry is still ahead of now matches.
func (r *AccountRepositoryImpl) FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*domain.Account, error) {
	return r.findOne(ctx, "password_reset_token = ? AND password_reset_expires > ?", hash, now.UTC())
}

// UpdateFields implements domain.AccountRepository
func (r *AccountRepositoryImpl) UpdateFields(ctx context.Context, id string, patch domain.AccountPatch) (*domain.Account, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return r.FindByID(ctx, id)
	}

	updates := map[string]interface{}{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Email != nil {
		updates["email"] = domain.NormalizeEmail(*patch.Email)
	}
	if patch.Username != nil {
		updates["username"] = *patch.Username
	}
	if patch.Verified != nil {
		updates["verified"] = *patch.Verified
	}

	if err := r.updateByID(ctx, id, updates); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// SetPassword implements domain.AccountRepository. Any pending reset token
// is invalidated together with the password change.
func (r *AccountRepositoryImpl) SetPassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	if err := checkID(id); err != nil {
		return err
	}
	return r.updateByID(ctx, id, map[string]interface{}{
		"password":               passwordHash,
		"password_changed_at":    changedAt.UTC(),
		"password_reset_token":   nil,
		"password_reset_expires": nil,
	})
}

// SetPasswordReset implements domain.AccountRepository
func (r *AccountRepositoryImpl) SetPasswordReset(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	if err := checkID(id); err != nil {
		return err
	}
	return r.updateByID(ctx, id, map[string]interface{}{
		"password_reset_token":   tokenHash,
		"password_reset_expires": expiresAt.UTC(),
	})
}

// ClearPasswordReset implements domain.AccountRepository
func (r *AccountRepositoryImpl) ClearPasswordReset(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	return r.updateByID(ctx, id, map[string]interface{}{
		"password_reset_token":   nil,
		"password_reset_expires": nil,
	})
}

// Delete implements domain.AccountRepository
func (r *AccountRepositoryImpl) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&DBAccount{})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepositoryImpl) findOne(ctx context.Context, query string, args ...interface{}) (*domain.Account, error) {
	var dbAccount DBAccount
	err := r.db.WithContext(ctx).Where(query, args...).First(&dbAccount).Error
	if err != nil {
		return nil, translateError(err)
	}
	return r.dbToDomain(&dbAccount), nil
}

func (r *AccountRepositoryImpl) updateByID(ctx context.Context, id string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&DBAccount{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// domainToDB converts domain account to database account
func (r *AccountRepositoryImpl) domainToDB(account *domain.Account) *DBAccount {
	return &DBAccount{
		ID:                   account.ID,
		Email:                domain.NormalizeEmail(account.Email),
		Username:             account.Username,
		Name:                 account.Name,
		PasswordHash:         account.PasswordHash,
		Role:                 account.Role,
		Verified:             account.Verified,
		PasswordChangedAt:    account.PasswordChangedAt,
		PasswordResetToken:   account.PasswordResetTokenHash,
		PasswordResetExpires: account.PasswordResetExpiresAt,
	}
}

// dbToDomain converts database account to domain account
func (r *AccountRepositoryImpl) dbToDomain(dbAccount *DBAccount) *domain.Account {
	return &domain.Account{
		ID:                     dbAccount.ID,
		Email:                  dbAccount.Email,
		Username:               dbAccount.Username,
		Name:                   dbAccount.Name,
		Role:                   dbAccount.Role,
		PasswordHash:           dbAccount.PasswordHash,
		Verified:               dbAccount.Verified,
		PasswordChangedAt:      dbAccount.PasswordChangedAt,
		PasswordResetTokenHash: dbAccount.PasswordResetToken,
		PasswordResetExpiresAt: dbAccount.PasswordResetExpires,
		CreatedAt:              dbAccount.CreatedAt,
		UpdatedAt:              dbAccount.UpdatedAt,
	}
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.NewCastError("_id", id)
	}
	return nil
}

// translateError maps driver errors onto domain errors. Unique violations
// are detected from postgres error codes, or from the sqlite message text.
func translateError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrAccountNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.NewDuplicateKeyError(duplicateField(pgErr.ConstraintName+" "+pgErr.Detail), err)
	}

	if msg := err.Error(); strings.Contains(msg, "UNIQUE constraint failed") {
		return domain.NewDuplicateKeyError(duplicateField(msg), err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.NewDuplicateKeyError("", err)
	}

	return fmt.Errorf("account store: %w", err)
}

func duplicateField(text string) string {
	switch {
	case strings.Contains(text, "email"):
		return "email"
	case strings.Contains(text, "username"):
		return "username"
	default:
		return ""
	}
}
