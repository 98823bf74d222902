package kerberos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jcmturner/gokrb5/v8/client"
	krb5config "github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/krberror"
	"github.com/jcmturner/gokrb5/v8/messages"
	"github.com/jcmturner/gokrb5/v8/types"

	"github.com/marmos91/dittoauth/internal/logger"
	"github.com/marmos91/dittoauth/pkg/auth"
	dconfig "github.com/marmos91/dittoauth/pkg/config"
)

// Name is the method name used in configuration.
const Name = dconfig.MethodKerberos

// EnvPrincipalVar is exported to the command environment on session begin.
const EnvPrincipalVar = "KRB5PRINCIPAL"

// session is a logged-in Kerberos client.
type session interface {
	GetServiceTicket(spn string) (messages.Ticket, types.EncryptionKey, error)
	Destroy()
}

// loginFunc performs the AS exchange.
type loginFunc func(user, realm, password string, cfg *krb5config.Config) (session, error)

func kdcLogin(user, realm, password string, cfg *krb5config.Config) (session, error) {
	cl := client.NewWithPassword(user, realm, password, cfg, client.DisablePAFXFAST(true))
	if err := cl.Login(); err != nil {
		cl.Destroy()
		return nil, err
	}
	return cl, nil
}

// Backend authenticates the user's password with the KDC.
type Backend struct {
	cfg      dconfig.KerberosConfig
	user     string
	provider *Provider
	sess     session
	login    loginFunc
	now      func() time.Time
}

// New creates a Kerberos backend for user.
func New(cfg dconfig.KerberosConfig, user string) *Backend {
	return &Backend{
		cfg:   cfg,
		user:  user,
		login: kdcLogin,
		now:   time.Now,
	}
}

var (
	_ auth.Backend          = (*Backend)(nil)
	_ auth.InitHook         = (*Backend)(nil)
	_ auth.SetupHook        = (*Backend)(nil)
	_ auth.SessionBeginHook = (*Backend)(nil)
	_ auth.SessionEndHook   = (*Backend)(nil)
	_ auth.CleanupHook      = (*Backend)(nil)
)

// Name returns "kerberos".
func (b *Backend) Name() string { return Name }

// Principal returns user@REALM once the backend is initialized.
func (b *Backend) Principal() string {
	if b.provider == nil {
		return b.user
	}
	return b.user + "@" + b.provider.Realm()
}

// Init loads krb5.conf and the optional keytab. A host without krb5.conf
// or a default realm disables the method.
func (b *Backend) Init(ctx context.Context, _ *auth.Descriptor) auth.Result {
	p, err := NewProvider(&b.cfg)
	switch {
	case err == nil:
		b.provider = p
		logger.DebugCtx(ctx, "kerberos ready",
			logger.KeyPrincipal, b.Principal(),
			"verify_tgt", p.VerifiesTGT())
		return auth.Success
	case errors.Is(err, ErrNotConfigured), errors.Is(err, ErrNoRealm):
		logger.DebugCtx(ctx, "kerberos not configured", logger.KeyError, err)
		return auth.Failure
	default:
		logger.ErrorCtx(ctx, "kerberos init failed", logger.KeyError, err)
		return auth.Error
	}
}

// Setup names the principal in the prompt.
func (b *Backend) Setup(_ context.Context, _ *auth.Descriptor, prompt *string) auth.Result {
	if b.provider == nil {
		return auth.Failure
	}
	*prompt = fmt.Sprintf("Password for %s: ", b.Principal())
	return auth.Success
}

// Verify obtains a TGT with the password and, when a keytab is configured,
// proves the TGT came from the real KDC.
func (b *Backend) Verify(ctx context.Context, _ *auth.Descriptor, req auth.VerifyRequest) auth.Result {
	if b.provider == nil {
		logger.ErrorCtx(ctx, "kerberos backend used before init")
		return auth.Error
	}
	if req.Credential == nil {
		return auth.Failure
	}

	// gokrb5 takes the password as a string.
	sess, err := b.login(b.user, b.provider.Realm(), req.Credential.String(), b.provider.Krb5Config())
	if err != nil {
		if isNetworkError(err) {
			logger.ErrorCtx(ctx, "cannot reach KDC", logger.KeyPrincipal, b.Principal(), logger.KeyError, err)
			return auth.Error
		}
		logger.DebugCtx(ctx, "kerberos login failed", logger.KeyPrincipal, b.Principal(), logger.KeyError, err)
		return auth.Failure
	}

	if b.provider.VerifiesTGT() {
		if err := b.verifyTGT(sess); err != nil {
			sess.Destroy()
			logger.WarnCtx(ctx, "kerberos TGT verification failed",
				logger.KeyPrincipal, b.Principal(), logger.KeyError, err)
			return auth.Failure
		}
	}

	b.destroy()
	b.sess = sess
	return auth.Success
}

// verifyTGT requests a ticket for the host principal and decrypts it with
// the host keytab.
func (b *Backend) verifyTGT(sess session) error {
	spn := b.provider.ServicePrincipal()
	tkt, _, err := sess.GetServiceTicket(spn)
	if err != nil {
		return fmt.Errorf("get service ticket for %s: %w", spn, err)
	}

	if err := tkt.DecryptEncPart(b.provider.Keytab(), nil); err != nil {
		return fmt.Errorf("service ticket does not decrypt with the host keytab: %w", err)
	}

	if got := tkt.DecryptedEncPart.CName.PrincipalNameString(); got != b.user {
		return fmt.Errorf("service ticket issued to %q", got)
	}

	if skew := b.provider.MaxClockSkew(); skew > 0 {
		diff := b.now().Sub(tkt.DecryptedEncPart.AuthTime)
		if diff < 0 {
			diff = -diff
		}
		if diff > skew {
			return fmt.Errorf("ticket auth time is %s away from local clock", diff.Round(time.Second))
		}
	}

	return nil
}

// BeginSession exports the authenticated principal.
func (b *Backend) BeginSession(_ context.Context, _ *auth.Descriptor, env *auth.Env) auth.Result {
	if b.sess != nil {
		env.Set(EnvPrincipalVar, b.Principal())
	}
	return auth.Success
}

// EndSession destroys the client and its tickets.
func (b *Backend) EndSession(_ context.Context, _ *auth.Descriptor) auth.Result {
	b.destroy()
	return auth.Success
}

// Cleanup destroys the client and drops the loaded configuration.
func (b *Backend) Cleanup(_ context.Context, _ *auth.Descriptor, _ bool) auth.Result {
	b.destroy()
	b.provider = nil
	return auth.Success
}

func (b *Backend) destroy() {
	if b.sess != nil {
		b.sess.Destroy()
		b.sess = nil
	}
}

// isNetworkError reports whether err means the KDC could not be reached,
// as opposed to the KDC rejecting the credential.
func isNetworkError(err error) bool {
	var kerr krberror.Krberror
	return errors.As(err, &kerr) && kerr.RootCause == krberror.NetworkingError
}
