// Package otp implements the standalone TOTP authentication method.
//
// The method prompts for a one-time code itself instead of sharing the
// chain's password, so it is registered with auth.FlagStandalone and cannot
// be combined with password methods.
package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	potp "github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/marmos91/dittoauth/internal/logger"
	"github.com/marmos91/dittoauth/pkg/auth"
	"github.com/marmos91/dittoauth/pkg/config"
)

// Name is the method name used in configuration.
const Name = config.MethodOTP

// Backend verifies a TOTP code read through the request's prompter.
type Backend struct {
	cfg    config.OTPConfig
	user   string
	secret *Secret
	now    func() time.Time
}

// New creates a TOTP backend for user.
func New(cfg config.OTPConfig, user string) *Backend {
	return &Backend{
		cfg:  cfg,
		user: user,
		now:  time.Now,
	}
}

var (
	_ auth.Backend     = (*Backend)(nil)
	_ auth.InitHook    = (*Backend)(nil)
	_ auth.SetupHook   = (*Backend)(nil)
	_ auth.CleanupHook = (*Backend)(nil)
)

// Name returns "otp".
func (b *Backend) Name() string { return Name }

// Init loads the user's secret. Users who never enrolled are skipped.
func (b *Backend) Init(ctx context.Context, _ *auth.Descriptor) auth.Result {
	store, err := OpenStore(b.cfg.SecretsFile)
	if err != nil {
		logger.ErrorCtx(ctx, "cannot open otp secrets", logger.KeyPath, b.cfg.SecretsFile, logger.KeyError, err)
		return auth.Error
	}

	sec, err := store.Get(b.user)
	if err != nil {
		logger.DebugCtx(ctx, "user not enrolled for otp")
		return auth.Failure
	}

	b.secret = sec
	return auth.Success
}

// Setup asks for a code rather than a password. A code always needs the
// user, so no-prompt mode ends verification here.
func (b *Backend) Setup(ctx context.Context, d *auth.Descriptor, prompt *string) auth.Result {
	if d != nil && d.NonInteractive() {
		logger.DebugCtx(ctx, "otp code required in non-interactive mode")
		return auth.NonInteractive
	}
	*prompt = fmt.Sprintf("[dittoauth] verification code for %s: ", b.user)
	return auth.Success
}

// Verify prompts for a code and validates it against the current time step.
func (b *Backend) Verify(ctx context.Context, _ *auth.Descriptor, req auth.VerifyRequest) auth.Result {
	if b.secret == nil {
		logger.ErrorCtx(ctx, "otp backend used before init")
		return auth.Error
	}
	if req.Prompter == nil {
		logger.ErrorCtx(ctx, "otp backend has no prompter")
		return auth.Error
	}

	code, err := req.Prompter.GetSecret(ctx, req.Prompt, auth.EchoOff)
	switch {
	case err != nil && !errors.Is(err, auth.ErrPromptInterrupted):
		logger.ErrorCtx(ctx, "cannot read otp code", logger.KeyError, err)
		return auth.Error
	case code == nil:
		return auth.Interrupted
	}
	defer code.Wipe()

	ok, err := totp.ValidateCustom(code.String(), b.secret.Secret, b.now(), b.validateOpts())
	if err != nil {
		// Wrong length or non-numeric input.
		logger.DebugCtx(ctx, "otp code rejected", logger.KeyError, err)
		return auth.Failure
	}
	if !ok {
		return auth.Failure
	}
	return auth.Success
}

// Cleanup drops the loaded secret.
func (b *Backend) Cleanup(_ context.Context, _ *auth.Descriptor, _ bool) auth.Result {
	b.secret = nil
	return auth.Success
}

// validateOpts prefers the parameters recorded at enrollment.
func (b *Backend) validateOpts() totp.ValidateOpts {
	digits, period := b.cfg.Digits, b.cfg.Period
	if b.secret.Digits != 0 {
		digits = b.secret.Digits
	}
	if b.secret.Period != 0 {
		period = b.secret.Period
	}
	return totp.ValidateOpts{
		Period:    period,
		Skew:      b.cfg.Skew,
		Digits:    potp.Digits(digits),
		Algorithm: potp.AlgorithmSHA1,
	}
}

// Enroll creates a new secret for user, replacing any existing one, and
// returns the key so the caller can show its otpauth:// URL.
func Enroll(cfg config.OTPConfig, user string) (*potp.Key, error) {
	store, err := OpenStore(cfg.SecretsFile)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      cfg.Issuer,
		AccountName: user,
		Period:      cfg.Period,
		Digits:      potp.Digits(cfg.Digits),
		Algorithm:   potp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}

	err = store.Set(user, &Secret{
		Secret:     key.Secret(),
		Digits:     cfg.Digits,
		Period:     cfg.Period,
		EnrolledAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("save otp secret: %w", err)
	}

	return key, nil
}
