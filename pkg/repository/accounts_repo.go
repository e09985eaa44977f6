package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/domain"
	"github.com/google/uuid"
)

const accountColumns = `
	id, email, name, password_hash, role, active, verified,
	failed_login_attempts, locked_until, last_login_at,
	refresh_token_hash, refresh_token_expires,
	verification_token_hash, verification_token_expires,
	reset_token_hash, reset_token_expires,
	tfa_enabled, tfa_secret_encrypted,
	created_at, updated_at`

// AccountsRepository is the Postgres-backed account store. All security state
// lives on the accounts row, so every mutation here is a single guarded
// UPDATE and racing requests serialize on the row lock.
type AccountsRepository struct {
	db *sql.DB
}

// NewAccountsRepository creates a new accounts repository.
func NewAccountsRepository(db *sql.DB) *AccountsRepository {
	return &AccountsRepository{db: db}
}

// Create inserts a new account.
func (r *AccountsRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (id, email, name, password_hash, role, active, verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		account.ID, account.Email, account.Name, account.PasswordHash,
		account.Role, account.Active, account.Verified,
		account.CreatedAt, account.UpdatedAt,
	)
	return err
}

// GetByID retrieves an account by ID.
func (r *AccountsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves an account by email.
func (r *AccountsRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// ExistsByEmail checks if an account exists by email.
func (r *AccountsRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, email).Scan(&exists)
	return exists, err
}

// Deactivate disables an account. Rows are never deleted.
func (r *AccountsRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE accounts
		SET active = FALSE, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id)
}

// RecordLoginFailure increments the failed-attempt counter and sets the lock
// expiry once the incremented counter reaches the threshold, in one statement.
func (r *AccountsRepository) RecordLoginFailure(ctx context.Context, id uuid.UUID, threshold int, lockUntil time.Time) (int, *time.Time, error) {
	query := `
		UPDATE accounts
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = CASE
		        WHEN failed_login_attempts + 1 >= $2 THEN $3
		        ELSE locked_until
		    END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING failed_login_attempts, locked_until
	`
	var attempts int
	var lockedUntil *time.Time
	err := r.db.QueryRowContext(ctx, query, id, threshold, lockUntil).Scan(&attempts, &lockedUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return 0, nil, err
	}
	return attempts, lockedUntil, nil
}

// ResetLoginFailures clears the counter and lock and records the login time.
func (r *AccountsRepository) ResetLoginFailures(ctx context.Context, id uuid.UUID, loginAt time.Time) error {
	query := `
		UPDATE accounts
		SET failed_login_attempts = 0,
		    locked_until = NULL,
		    last_login_at = $2,
		    updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, loginAt)
}

// UpdatePasswordHash replaces the stored password hash.
func (r *AccountsRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	query := `
		UPDATE accounts
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, hash)
}

// SetRefreshSession overwrites the active refresh session.
func (r *AccountsRepository) SetRefreshSession(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	query := `
		UPDATE accounts
		SET refresh_token_hash = $2, refresh_token_expires = $3, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, tokenHash, expiresAt)
}

// ClearRefreshSession nulls the refresh session columns.
func (r *AccountsRepository) ClearRefreshSession(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE accounts
		SET refresh_token_hash = NULL, refresh_token_expires = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id)
}

// GetByRefreshTokenHash resolves the account holding the given session hash.
func (r *AccountsRepository) GetByRefreshTokenHash(ctx context.Context, tokenHash string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE refresh_token_hash = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, tokenHash))
}

// SetSingleUseToken stores a token hash and expiry for the given purpose,
// overwriting any unconsumed prior token.
func (r *AccountsRepository) SetSingleUseToken(ctx context.Context, id uuid.UUID, purpose domain.TokenPurpose, tokenHash string, expiresAt time.Time) error {
	var query string
	if purpose == domain.PurposePasswordReset {
		query = `
			UPDATE accounts
			SET reset_token_hash = $2, reset_token_expires = $3, updated_at = NOW()
			WHERE id = $1
		`
	} else {
		query = `
			UPDATE accounts
			SET verification_token_hash = $2, verification_token_expires = $3, updated_at = NOW()
			WHERE id = $1
		`
	}
	return r.execOne(ctx, query, id, tokenHash, expiresAt)
}

// GetBySingleUseTokenHash resolves the account holding the given token hash.
func (r *AccountsRepository) GetBySingleUseTokenHash(ctx context.Context, purpose domain.TokenPurpose, tokenHash string) (*domain.Account, error) {
	column := "verification_token_hash"
	if purpose == domain.PurposePasswordReset {
		column = "reset_token_hash"
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + column + ` = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, tokenHash))
}

// ClearSingleUseToken nulls the token columns for the given purpose.
func (r *AccountsRepository) ClearSingleUseToken(ctx context.Context, id uuid.UUID, purpose domain.TokenPurpose) error {
	var query string
	if purpose == domain.PurposePasswordReset {
		query = `
			UPDATE accounts
			SET reset_token_hash = NULL, reset_token_expires = NULL, updated_at = NOW()
			WHERE id = $1
		`
	} else {
		query = `
			UPDATE accounts
			SET verification_token_hash = NULL, verification_token_expires = NULL, updated_at = NOW()
			WHERE id = $1
		`
	}
	return r.execOne(ctx, query, id)
}

// ConsumeVerificationToken marks the account verified and clears the token
// columns in one guarded UPDATE. A second racing consumer matches no row
// after the first commits and gets domain.ErrTokenNotFound.
func (r *AccountsRepository) ConsumeVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*domain.Account, error) {
	query := `
		UPDATE accounts
		SET verified = TRUE,
		    verification_token_hash = NULL,
		    verification_token_expires = NULL,
		    updated_at = NOW()
		WHERE verification_token_hash = $1 AND verification_token_expires > $2
		RETURNING ` + accountColumns
	account, err := r.scanOne(r.db.QueryRowContext(ctx, query, tokenHash, now))
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrTokenNotFound
	}
	return account, err
}

// ConsumeResetToken installs the new password hash and clears the token
// columns in one guarded UPDATE, with the same race semantics as
// ConsumeVerificationToken.
func (r *AccountsRepository) ConsumeResetToken(ctx context.Context, tokenHash string, newPasswordHash string, now time.Time) (*domain.Account, error) {
	query := `
		UPDATE accounts
		SET password_hash = $2,
		    reset_token_hash = NULL,
		    reset_token_expires = NULL,
		    failed_login_attempts = 0,
		    locked_until = NULL,
		    updated_at = NOW()
		WHERE reset_token_hash = $1 AND reset_token_expires > $3
		RETURNING ` + accountColumns
	account, err := r.scanOne(r.db.QueryRowContext(ctx, query, tokenHash, newPasswordHash, now))
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrTokenNotFound
	}
	return account, err
}

// PurgeExpiredTokens nulls expired single-use token columns across all rows.
func (r *AccountsRepository) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE accounts
		SET verification_token_hash = CASE WHEN verification_token_expires <= $1 THEN NULL ELSE verification_token_hash END,
		    verification_token_expires = CASE WHEN verification_token_expires <= $1 THEN NULL ELSE verification_token_expires END,
		    reset_token_hash = CASE WHEN reset_token_expires <= $1 THEN NULL ELSE reset_token_hash END,
		    reset_token_expires = CASE WHEN reset_token_expires <= $1 THEN NULL ELSE reset_token_expires END
		WHERE verification_token_expires <= $1 OR reset_token_expires <= $1
	`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// SetTFAPending stores an encrypted secret with enrollment unconfirmed.
func (r *AccountsRepository) SetTFAPending(ctx context.Context, id uuid.UUID, encryptedSecret string) error {
	query := `
		UPDATE accounts
		SET tfa_enabled = FALSE, tfa_secret_encrypted = $2, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, encryptedSecret)
}

// EnableTFA flips a pending enrollment to enabled.
func (r *AccountsRepository) EnableTFA(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE accounts
		SET tfa_enabled = TRUE, updated_at = NOW()
		WHERE id = $1 AND tfa_secret_encrypted IS NOT NULL
	`
	return r.execOne(ctx, query, id)
}

// DisableTFA clears the secret and the enabled flag.
func (r *AccountsRepository) DisableTFA(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE accounts
		SET tfa_enabled = FALSE, tfa_secret_encrypted = NULL, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id)
}

func (r *AccountsRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountsRepository) scanOne(row *sql.Row) (*domain.Account, error) {
	account := &domain.Account{}
	err := row.Scan(
		&account.ID, &account.Email, &account.Name, &account.PasswordHash,
		&account.Role, &account.Active, &account.Verified,
		&account.FailedLoginAttempts, &account.LockedUntil, &account.LastLoginAt,
		&account.RefreshTokenHash, &account.RefreshTokenExpires,
		&account.VerificationTokenHash, &account.VerificationTokenExpires,
		&account.ResetTokenHash, &account.ResetTokenExpires,
		&account.TFAEnabled, &account.TFASecretEncrypted,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}
