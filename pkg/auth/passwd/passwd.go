// Package passwd verifies passwords against a bcrypt password file.
//
// The file holds one "user:bcrypt-hash[:YYYY-MM-DD]" entry per line. The
// optional date is the password expiry, enforced at approval time.
package passwd

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/marmos91/dittoauth/internal/logger"
	"github.com/marmos91/dittoauth/pkg/auth"
	"github.com/marmos91/dittoauth/pkg/config"
)

// Name is the method name used in configuration.
const Name = config.MethodPasswd

// Backend checks the user's password against one entry of the file.
type Backend struct {
	path string
	user string
	hash *auth.Credential // wiped on cleanup
	exp  time.Time
	now  func() time.Time
}

// New creates a password file backend for user.
func New(cfg config.PasswdConfig, user string) *Backend {
	return &Backend{
		path: cfg.File,
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

// Name returns "passwd".
func (b *Backend) Name() string { return Name }

// Init loads the user's entry. A missing file or user disables the method.
func (b *Backend) Init(ctx context.Context, _ *auth.Descriptor) auth.Result {
	entries, err := ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.DebugCtx(ctx, "password file not found", logger.KeyPath, b.path)
			return auth.Failure
		}
		logger.ErrorCtx(ctx, "cannot read password file", logger.KeyPath, b.path, logger.KeyError, err)
		return auth.Error
	}

	e, ok := entries[b.user]
	if !ok {
		logger.DebugCtx(ctx, "user not in password file", logger.KeyPath, b.path)
		return auth.Failure
	}

	b.hash = auth.NewCredential(e.Hash)
	b.exp = e.Expires
	return auth.Success
}

// Verify compares the credential with the stored bcrypt hash.
func (b *Backend) Verify(ctx context.Context, _ *auth.Descriptor, req auth.VerifyRequest) auth.Result {
	if b.hash == nil || b.hash.Wiped() {
		logger.ErrorCtx(ctx, "password backend used before init")
		return auth.Error
	}
	if req.Credential == nil {
		return auth.Failure
	}

	err := bcrypt.CompareHashAndPassword(b.hash.Bytes(), req.Credential.Bytes())
	switch {
	case err == nil:
		return auth.Success
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return auth.Failure
	default:
		logger.ErrorCtx(ctx, "bcrypt compare failed", logger.KeyError, err)
		return auth.Error
	}
}

// Approve rejects expired passwords unless the user is exempt.
func (b *Backend) Approve(ctx context.Context, _ *auth.Descriptor, exempt bool) auth.Result {
	if b.exp.IsZero() || b.now().Before(b.exp) {
		return auth.Success
	}
	if exempt {
		logger.InfoCtx(ctx, "password expired, user exempt")
		return auth.Success
	}
	logger.WarnCtx(ctx, "password expired", "expired_on", b.exp.Format(DateLayout))
	return auth.Failure
}

// Cleanup drops the cached hash.
func (b *Backend) Cleanup(_ context.Context, _ *auth.Descriptor, _ bool) auth.Result {
	b.hash.Wipe()
	b.hash = nil
	return auth.Success
}
