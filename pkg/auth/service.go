package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/domain"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/metrics"
	"github.com/google/uuid"
)

// Mailer delivers verification and reset emails. Delivery failures are
// logged and never block the issuing operation.
type Mailer interface {
	Send(templateName, toAddress, token string) error
}

// Mail template names passed to the Mailer.
const (
	MailTemplateVerification  = "verify-email"
	MailTemplatePasswordReset = "reset-password"
)

// RequestMeta carries request context for audit events.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// RegisterParams are the allow-listed fields accepted at registration.
// Sensitive columns (lockout state, token hashes, the admin role) can never
// be mass-assigned through this struct.
type RegisterParams struct {
	Email    string
	Name     string
	Password string
	Role     domain.Role
}

// AuthService orchestrates registration and login. The login control flow is
// lockout check -> credential verify -> second factor (if enabled) -> token
// issuance, with an audit event at each decisive step.
type AuthService struct {
	store        AccountStore
	policy       *PasswordPolicy
	lockout      *LockoutTracker
	tokens       *TokenService
	tfa          *TFAService
	verification *VerificationService
	mailer       Mailer
	signupLimit  *SignupLimiter
	audit        *AuditDispatcher
	logger       *slog.Logger
	clock        Clock
}

// AuthServiceDeps bundles the collaborators of the auth service.
type AuthServiceDeps struct {
	Store        AccountStore
	Policy       *PasswordPolicy
	Lockout      *LockoutTracker
	Tokens       *TokenService
	TFA          *TFAService
	Verification *VerificationService
	Mailer       Mailer
	SignupLimit  *SignupLimiter
	Audit        *AuditDispatcher
	Logger       *slog.Logger
	Clock        Clock
}

// NewAuthService creates the auth orchestration service.
func NewAuthService(deps AuthServiceDeps) *AuthService {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	return &AuthService{
		store:        deps.Store,
		policy:       deps.Policy,
		lockout:      deps.Lockout,
		tokens:       deps.Tokens,
		tfa:          deps.TFA,
		verification: deps.Verification,
		mailer:       deps.Mailer,
		signupLimit:  deps.SignupLimit,
		audit:        deps.Audit,
		logger:       deps.Logger,
		clock:        deps.Clock,
	}
}

// Register creates a new account and issues an email-verification token.
// The account starts unverified; verification does not gate login.
func (s *AuthService) Register(ctx context.Context, params RegisterParams, meta RequestMeta) (*domain.Account, error) {
	if err := ValidateEmail(params.Email); err != nil {
		return nil, err
	}
	email := NormalizeEmail(params.Email)

	role := params.Role
	if role == "" {
		role = domain.RoleUser
	}
	// Admin accounts are provisioned administratively, never self-registered.
	if role != domain.RoleUser && role != domain.RoleCoach {
		return nil, fmt.Errorf("%w: role %q cannot be self-assigned", domain.ErrForbidden, role)
	}

	if s.signupLimit != nil {
		if err := s.signupLimit.Enforce(ctx, email, meta.IP); err != nil {
			return nil, err
		}
	}

	hash, err := HashPassword(params.Password, s.policy)
	if err != nil {
		return nil, err
	}

	exists, err := s.store.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrAccountAlreadyExists
	}

	now := s.clock.Now()
	account := &domain.Account{
		ID:           uuid.New(),
		Email:        email,
		Name:         params.Name,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		Verified:     false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, account); err != nil {
		return nil, err
	}

	s.audit.Record(AuditEvent{
		EventType: EventRegistration,
		AccountID: account.ID.String(),
		Email:     account.Email,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Outcome:   "success",
	})
	metrics.RegistrationsTotal.WithLabelValues("password").Inc()

	s.sendVerificationMail(ctx, account)
	return account, nil
}

// LoginParams are the credentials presented at login. TFACode is required
// only when the account has two-factor enabled.
type LoginParams struct {
	Email    string
	Password string
	TFACode  string
}

// Login authenticates an account and returns a token pair. Unknown email and
// wrong password are deliberately indistinguishable; a locked account is
// disclosed with a retry-after hint.
func (s *AuthService) Login(ctx context.Context, params LoginParams, meta RequestMeta) (*domain.TokenPair, error) {
	email := NormalizeEmail(params.Email)

	account, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			// Unknown emails never touch a lockout counter.
			s.recordLoginFailure("", email, meta, "unknown_email")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !account.Active {
		s.recordLoginFailure(account.ID.String(), email, meta, "account_disabled")
		return nil, domain.ErrAccountDisabled
	}

	// Lockout short-circuits before the password check so a locked account
	// never consumes a verify cycle.
	if err := s.lockout.CheckLocked(account); err != nil {
		s.recordLoginFailure(account.ID.String(), email, meta, "locked")
		metrics.LoginsTotal.WithLabelValues("locked").Inc()
		return nil, err
	}

	ok, err := VerifyPassword(params.Password, account.PasswordHash)
	if err != nil {
		// Data integrity fault: log loudly, never repair silently.
		s.logger.Error("corrupt password hash",
			"account_id", account.ID, "error", err)
		return nil, err
	}
	if !ok {
		lockTriggered, lerr := s.lockout.RecordFailure(ctx, account.ID)
		if lerr != nil {
			s.logger.Error("record login failure", "account_id", account.ID, "error", lerr)
		}
		s.recordLoginFailure(account.ID.String(), email, meta, "bad_password")
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		if lockTriggered {
			s.audit.Record(AuditEvent{
				EventType: EventLockoutTriggered,
				AccountID: account.ID.String(),
				Email:     email,
				IP:        meta.IP,
				UserAgent: meta.UserAgent,
				Outcome:   "locked",
			})
			metrics.LockoutsTotal.Inc()
		}
		return nil, domain.ErrInvalidCredentials
	}

	if account.TFAEnabled {
		if params.TFACode == "" {
			return nil, domain.ErrTFARequired
		}
		valid, err := s.tfa.VerifyLogin(ctx, account, params.TFACode)
		if err != nil {
			return nil, err
		}
		if !valid {
			// A failed second factor does not advance the lockout counter;
			// the password was already proven.
			s.recordLoginFailure(account.ID.String(), email, meta, "bad_tfa_code")
			metrics.LoginsTotal.WithLabelValues("tfa_failed").Inc()
			return nil, domain.ErrInvalidTFACode
		}
	}

	if err := s.lockout.RecordSuccess(ctx, account.ID); err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssuePair(ctx, account)
	if err != nil {
		return nil, err
	}

	s.audit.Record(AuditEvent{
		EventType: EventLoginSuccess,
		AccountID: account.ID.String(),
		Email:     email,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Outcome:   "success",
	})
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return pair, nil
}

// RequestPasswordReset issues a reset token for the account behind the email
// and mails it. Unknown emails are a silent no-op so the endpoint cannot be
// used to enumerate accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string, meta RequestMeta) error {
	account, err := s.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil
		}
		return err
	}

	token, err := s.verification.Issue(ctx, account.ID, domain.PurposePasswordReset)
	if err != nil {
		return err
	}
	s.sendMail(MailTemplatePasswordReset, account.Email, token)
	return nil
}

// ResendVerification issues a fresh verification token, superseding any
// earlier one, and mails it.
func (s *AuthService) ResendVerification(ctx context.Context, accountID uuid.UUID) error {
	account, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.Verified {
		return nil
	}
	s.sendVerificationMail(ctx, account)
	return nil
}

// ChangePassword changes the password of an authenticated account after
// re-verifying the current one, then revokes the active refresh session.
func (s *AuthService) ChangePassword(ctx context.Context, accountID uuid.UUID, currentPassword, newPassword string, meta RequestMeta) error {
	account, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	ok, err := VerifyPassword(currentPassword, account.PasswordHash)
	if err != nil {
		s.logger.Error("corrupt password hash", "account_id", account.ID, "error", err)
		return err
	}
	if !ok {
		return domain.ErrInvalidCredentials
	}

	hash, err := HashPassword(newPassword, s.policy)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePasswordHash(ctx, accountID, hash); err != nil {
		return err
	}
	if err := s.tokens.Revoke(ctx, accountID); err != nil {
		return err
	}

	s.audit.Record(AuditEvent{
		EventType: EventPasswordChange,
		AccountID: account.ID.String(),
		Email:     account.Email,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Outcome:   "changed",
	})
	return nil
}

// Deactivate disables an account administratively and revokes its refresh
// session. Accounts are deactivated, never hard-deleted.
func (s *AuthService) Deactivate(ctx context.Context, accountID uuid.UUID) error {
	if err := s.store.Deactivate(ctx, accountID); err != nil {
		return err
	}
	return s.tokens.Revoke(ctx, accountID)
}

// GetAccount retrieves an account by ID.
func (s *AuthService) GetAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	return s.store.GetByID(ctx, accountID)
}

func (s *AuthService) recordLoginFailure(accountID, email string, meta RequestMeta, outcome string) {
	s.audit.Record(AuditEvent{
		EventType: EventLoginFailure,
		AccountID: accountID,
		Email:     email,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		Outcome:   outcome,
	})
}

func (s *AuthService) sendVerificationMail(ctx context.Context, account *domain.Account) {
	token, err := s.verification.Issue(ctx, account.ID, domain.PurposeEmailVerification)
	if err != nil {
		s.logger.Error("issue verification token", "account_id", account.ID, "error", err)
		return
	}
	s.sendMail(MailTemplateVerification, account.Email, token)
}

// sendMail delivers asynchronously; mail transport failures are logged and
// discarded, never surfaced to the caller.
func (s *AuthService) sendMail(template, to, token string) {
	if s.mailer == nil {
		return
	}
	go func() {
		if err := s.mailer.Send(template, to, token); err != nil {
			s.logger.Error("send email", "template", template, "error", err)
		}
	}()
}

// Reaper runs the verification reaper on a fixed interval until the context
// is canceled. Optional storage hygiene.
func (s *AuthService) Reaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := s.verification.Reap(ctx)
			if err != nil {
				s.logger.Error("purge expired tokens", "error", err)
				continue
			}
			if purged > 0 {
				s.logger.Info("purged expired tokens", "count", purged)
			}
		}
	}
}
