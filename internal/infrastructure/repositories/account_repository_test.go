package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/you/accountsvc/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	// every pooled connection would get its own empty database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&DBAccount{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	return db
}

func strPtr(s string) *string { return &s }

func seedAccount(t *testing.T, repo domain.AccountRepository, email string, username *string) *domain.Account {
	t.Helper()
	account := &domain.Account{
		Email:        email,
		Username:     username,
		Name:         "Test User",
		PasswordHash: "hashed_password",
	}
	if err := repo.Create(context.Background(), account); err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}
	return account
}

func TestAccountRepositoryImpl_Create(t *testing.T) {
	tests := []struct {
		name          string
		setupData     func(repo domain.AccountRepository)
		account       *domain.Account
		expectedError error
	}{
		{
			name:      "successful create assigns id and default role",
			setupData: func(repo domain.AccountRepository) {},
			account: &domain.Account{
				Email:        "New@Example.com ",
				PasswordHash: "hashed_password",
			},
			expectedError: nil,
		},
		{
			name: "duplicate email",
			setupData: func(repo domain.AccountRepository) {
				seedAccount(t, repo, "taken@example.com", nil)
			},
			account: &domain.Account{
				Email:        "taken@example.com",
				PasswordHash: "hashed_password",
			},
			expectedError: domain.ErrEmailTaken,
		},
		{
			name: "duplicate username",
			setupData: func(repo domain.AccountRepository) {
				seedAccount(t, repo, "first@example.com", strPtr("alice"))
			},
			account: &domain.Account{
				Email:        "second@example.com",
				Username:     strPtr("alice"),
				PasswordHash: "hashed_password",
			},
			expectedError: domain.ErrUsernameTaken,
		},
		{
			name: "accounts without username do not collide",
			setupData: func(repo domain.AccountRepository) {
				seedAccount(t, repo, "first@example.com", nil)
			},
			account: &domain.Account{
				Email:        "second@example.com",
				PasswordHash: "hashed_password",
			},
			expectedError: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewAccountRepository(setupTestDB(t))
			tt.setupData(repo)

			err := repo.Create(context.Background(), tt.account)

			if tt.expectedError != nil {
				if !errors.Is(err, tt.expectedError) {
					t.Fatalf("expected error %v, got %v", tt.expectedError, err)
				}
				if !domain.IsKind(err, domain.KindDuplicateKey) {
					t.Errorf("expected duplicate key kind, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.account.ID == "" {
				t.Error("expected id to be assigned")
			}
			if tt.account.Role != domain.RoleUser {
				t.Errorf("expected role %q, got %q", domain.RoleUser, tt.account.Role)
			}

			found, err := repo.FindByID(context.Background(), tt.account.ID)
			if err != nil {
				t.Fatalf("failed to reload: %v", err)
			}
			if found.Email != domain.NormalizeEmail(tt.account.Email) {
				t.Errorf("expected normalized email, got %q", found.Email)
			}
			if found.Verified {
				t.Error("new accounts must start unverified")
			}
		})
	}
}

func TestAccountRepositoryImpl_Find(t *testing.T) {
	repo := NewAccountRepository(setupTestDB(t))
	seeded := seedAccount(t, repo, "alice@example.com", strPtr("alice"))
	ctx := context.Background()

	tests := []struct {
		name          string
		find          func() (*domain.Account, error)
		expectedError error
		expectedKind  domain.ErrorKind
	}{
		{
			name: "by id",
			find: func() (*domain.Account, error) { return repo.FindByID(ctx, seeded.ID) },
		},
		{
			name: "by email ignores case",
			find: func() (*domain.Account, error) { return repo.FindByEmail(ctx, "ALICE@example.com") },
		},
		{
			name: "by username",
			find: func() (*domain.Account, error) { return repo.FindByUsername(ctx, "alice") },
		},
		{
			name:          "unknown email",
			find:          func() (*domain.Account, error) { return repo.FindByEmail(ctx, "bob@example.com") },
			expectedError: domain.ErrAccountNotFound,
		},
		{
			name:          "unknown id",
			find:          func() (*domain.Account, error) { return repo.FindByID(ctx, "0b6d9a0e-5d0c-4b8a-9c53-8d4f0c7f1a22") },
			expectedError: domain.ErrAccountNotFound,
		},
		{
			name:         "malformed id",
			find:         func() (*domain.Account, error) { return repo.FindByID(ctx, "not-an-id") },
			expectedKind: domain.KindCast,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := tt.find()

			switch {
			case tt.expectedError != nil:
				if !errors.Is(err, tt.expectedError) {
					t.Errorf("expected error %v, got %v", tt.expectedError, err)
				}
			case tt.expectedKind != "":
				if !domain.IsKind(err, tt.expectedKind) {
					t.Errorf("expected kind %v, got %v", tt.expectedKind, err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if account.ID != seeded.ID {
					t.Errorf("expected account %s, got %s", seeded.ID, account.ID)
				}
				if account.PasswordHash != "hashed_password" {
					t.Error("expected password hash to be loaded")
				}
			}
		})
	}
}

func TestAccountRepositoryImpl_UpdateFields(t *testing.T) {
	ctx := context.Background()

	t.Run("applies only set fields", func(t *testing.T) {
		repo := NewAccountRepository(setupTestDB(t))
		seeded := seedAccount(t, repo, "alice@example.com", strPtr("alice"))

		verified := true
		updated, err := repo.UpdateFields(ctx, seeded.ID, domain.AccountPatch{
			Name:     strPtr("Alice Liddell"),
			Verified: &verified,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if updated.Name != "Alice Liddell" || !updated.Verified {
			t.Errorf("expected name and verified to change, got %+v", updated)
		}
		if updated.Email != "alice@example.com" || *updated.Username != "alice" {
			t.Errorf("expected untouched fields to survive, got %+v", updated)
		}
	})

	t.Run("duplicate email on update", func(t *testing.T) {
		repo := NewAccountRepository(setupTestDB(t))
		seedAccount(t, repo, "alice@example.com", nil)
		bob := seedAccount(t, repo, "bob@example.com", nil)

		_, err := repo.UpdateFields(ctx, bob.ID, domain.AccountPatch{Email: strPtr("alice@example.com")})
		if !errors.Is(err, domain.ErrEmailTaken) {
			t.Errorf("expected %v, got %v", domain.ErrEmailTaken, err)
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		repo := NewAccountRepository(setupTestDB(t))
		_, err := repo.UpdateFields(ctx, "0b6d9a0e-5d0c-4b8a-9c53-8d4f0c7f1a22", domain.AccountPatch{Name: strPtr("x")})
		if !errors.Is(err, domain.ErrAccountNotFound) {
			t.Errorf("expected %v, got %v", domain.ErrAccountNotFound, err)
		}
	})
}

func TestAccountRepositoryImpl_PasswordReset(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	repo := NewAccountRepository(setupTestDB(t))
	seeded := seedAccount(t, repo, "alice@example.com", strPtr("alice"))

	if err := repo.SetPasswordReset(ctx, seeded.ID, "digest", now.Add(10*time.Minute)); err != nil {
		t.Fatalf("set reset: %v", err)
	}

	found, err := repo.FindByResetTokenHash(ctx, "digest", now.Add(9*time.Minute))
	if err != nil {
		t.Fatalf("expected pending reset to match: %v", err)
	}
	if found.ID != seeded.ID || !found.HasPendingReset(now) {
		t.Errorf("expected pending reset on %s, got %+v", seeded.ID, found)
	}

	if _, err := repo.FindByResetTokenHash(ctx, "digest", now.Add(11*time.Minute)); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("expected lapsed token to miss, got %v", err)
	}
	if _, err := repo.FindByResetTokenHash(ctx, "other", now); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("expected unknown digest to miss, got %v", err)
	}

	changedAt := now.Add(time.Minute)
	if err := repo.SetPassword(ctx, seeded.ID, "new_hash", changedAt); err != nil {
		t.Fatalf("set password: %v", err)
	}

	reloaded, err := repo.FindByID(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.PasswordHash != "new_hash" {
		t.Errorf("expected new hash, got %q", reloaded.PasswordHash)
	}
	if reloaded.PasswordChangedAt == nil || !reloaded.PasswordChangedAt.Equal(changedAt) {
		t.Errorf("expected changed at %v, got %v", changedAt, reloaded.PasswordChangedAt)
	}
	if reloaded.PasswordResetTokenHash != nil || reloaded.PasswordResetExpiresAt != nil {
		t.Error("expected password change to clear reset fields")
	}
}

func TestAccountRepositoryImpl_ClearPasswordReset(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(setupTestDB(t))
	seeded := seedAccount(t, repo, "alice@example.com", nil)

	if err := repo.SetPasswordReset(ctx, seeded.ID, "digest", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("set reset: %v", err)
	}
	if err := repo.ClearPasswordReset(ctx, seeded.ID); err != nil {
		t.Fatalf("clear reset: %v", err)
	}

	reloaded, err := repo.FindByID(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.PasswordResetTokenHash != nil || reloaded.PasswordResetExpiresAt != nil {
		t.Errorf("expected reset fields cleared, got %+v", reloaded)
	}
}

func TestAccountRepositoryImpl_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository(setupTestDB(t))
	seeded := seedAccount(t, repo, "alice@example.com", nil)

	if err := repo.Delete(ctx, seeded.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, seeded.ID); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("expected deleted account to be gone, got %v", err)
	}
	if err := repo.Delete(ctx, seeded.ID); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("expected second delete to miss, got %v", err)
	}

	// the email is free again
	seedAccount(t, repo, "alice@example.com", nil)
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "record not found", err: gorm.ErrRecordNotFound, expected: domain.ErrAccountNotFound},
		{name: "sqlite email", err: errors.New("UNIQUE constraint failed: accounts.email"), expected: domain.ErrEmailTaken},
		{name: "sqlite username", err: errors.New("UNIQUE constraint failed: accounts.username"), expected: domain.ErrUsernameTaken},
		{name: "generic duplicate", err: gorm.ErrDuplicatedKey, expected: domain.ErrEmailOrUsernameTaken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := translateError(tt.err); !errors.Is(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}

	other := errors.New("connection reset")
	if got := translateError(other); !errors.Is(got, other) || domain.IsKind(got, domain.KindDuplicateKey) {
		t.Errorf("expected wrapped passthrough, got %v", got)
	}
}
