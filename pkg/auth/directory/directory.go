// Package directory verifies passwords against a SQL account directory.
//
// Accounts live in a GORM-managed table (SQLite by default, PostgreSQL for
// shared deployments) with a bcrypt hash, an optional expiry, a lock flag
// and a consecutive failure counter used for lockout.
package directory

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/marmos91/dittoauth/internal/logger"
	"github.com/marmos91/dittoauth/pkg/auth"
	"github.com/marmos91/dittoauth/pkg/config"
)

// Name is the method name used in configuration.
const Name = config.MethodDirectory

// Backend checks the user's password against the account directory.
type Backend struct {
	cfg     config.DirectoryConfig
	user    string
	store   *Store
	account *Account
	now     func() time.Time
}

// New creates a directory backend for user.
func New(cfg config.DirectoryConfig, user string) *Backend {
	return &Backend{
		cfg:  cfg,
		user: user,
		now:  time.Now,
	}
}

var (
	_ auth.Backend      = (*Backend)(nil)
	_ auth.InitHook     = (*Backend)(nil)
	_ auth.ApprovalHook = (*Backend)(nil)
	_ auth.CleanupHook  = (*Backend)(nil)
)

// Name returns "directory".
func (b *Backend) Name() string { return Name }

// Init opens the directory and loads the user's account. A user without
// an account disables the method.
func (b *Backend) Init(ctx context.Context, _ *auth.Descriptor) auth.Result {
	store, err := Open(&b.cfg)
	if err != nil {
		logger.ErrorCtx(ctx, "cannot open account directory", logger.KeyError, err)
		return auth.Error
	}

	account, err := store.GetAccount(ctx, b.user)
	if err != nil {
		_ = store.Close()
		if errors.Is(err, ErrAccountNotFound) {
			logger.DebugCtx(ctx, "user not in account directory")
			return auth.Failure
		}
		logger.ErrorCtx(ctx, "account lookup failed", logger.KeyError, err)
		return auth.Error
	}

	b.store = store
	b.account = account
	return auth.Success
}

// Verify compares the credential with the account hash and maintains the
// failure counter.
func (b *Backend) Verify(ctx context.Context, _ *auth.Descriptor, req auth.VerifyRequest) auth.Result {
	if b.account == nil {
		logger.ErrorCtx(ctx, "directory backend used before init")
		return auth.Error
	}
	if req.Credential == nil {
		return auth.Failure
	}

	err := bcrypt.CompareHashAndPassword([]byte(b.account.PasswordHash), req.Credential.Bytes())
	switch {
	case err == nil:
		// A correct password does not clear a lockout; Approve rejects it.
		if b.lockedOut() {
			return auth.Success
		}
		if err := b.store.RecordSuccess(ctx, b.user, b.now()); err != nil {
			logger.WarnCtx(ctx, "cannot reset failure counter", logger.KeyError, err)
		}
		b.account.FailedAttempts = 0
		return auth.Success

	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		if err := b.store.RecordFailure(ctx, b.user); err != nil {
			logger.ErrorCtx(ctx, "cannot record failed attempt", logger.KeyError, err)
			return auth.Error
		}
		b.account.FailedAttempts++
		return auth.Failure

	default:
		logger.ErrorCtx(ctx, "bcrypt compare failed", logger.KeyError, err)
		return auth.Error
	}
}

// Approve rejects locked accounts, accounts over the lockout threshold and,
// unless exempt, expired passwords. Lockout is never waived.
func (b *Backend) Approve(ctx context.Context, _ *auth.Descriptor, exempt bool) auth.Result {
	if b.account == nil {
		return auth.Error
	}
	if b.account.Locked {
		logger.WarnCtx(ctx, "account is locked")
		return auth.Failure
	}
	if b.lockedOut() {
		logger.WarnCtx(ctx, "account locked out after failed attempts",
			"failed_attempts", b.account.FailedAttempts,
			"lockout_threshold", b.cfg.LockoutThreshold)
		return auth.Failure
	}
	if b.account.Expired(b.now()) {
		if exempt {
			logger.InfoCtx(ctx, "password expired, user exempt")
			return auth.Success
		}
		logger.WarnCtx(ctx, "password expired", "expired_at", b.account.ExpiresAt.Format(time.RFC3339))
		return auth.Failure
	}
	return auth.Success
}

// Cleanup closes the database connection. It is a no-op when Init never
// opened one.
func (b *Backend) Cleanup(ctx context.Context, _ *auth.Descriptor, _ bool) auth.Result {
	b.account = nil
	if b.store == nil {
		return auth.Success
	}
	if err := b.store.Close(); err != nil {
		logger.WarnCtx(ctx, "cannot close account directory", logger.KeyError, err)
		return auth.Error
	}
	b.store = nil
	return auth.Success
}

func (b *Backend) lockedOut() bool {
	return b.cfg.LockoutThreshold > 0 && b.account.FailedAttempts >= b.cfg.LockoutThreshold
}
