package auth

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/domain"
	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpPeriod = 30
	totpSkew   = 1 // tolerate one step of clock drift either way
)

// TFAConfig contains configuration for the two-factor manager.
type TFAConfig struct {
	Issuer        string
	EncryptionKey []byte // 32 bytes for AES-256-GCM
}

// TFAService manages TOTP enrollment and per-login second-factor checks.
// Enrollment states per account: Disabled -> Pending (secret provisioned,
// unconfirmed) -> Enabled.
type TFAService struct {
	config TFAConfig
	store  AccountStore
	audit  *AuditDispatcher
	clock  Clock
}

// NewTFAService creates a two-factor manager.
func NewTFAService(config TFAConfig, store AccountStore, audit *AuditDispatcher, clock Clock) *TFAService {
	if clock == nil {
		clock = SystemClock()
	}
	return &TFAService{config: config, store: store, audit: audit, clock: clock}
}

// BeginEnrollment generates a new secret and stores it unconfirmed. The
// secret and provisioning URI are returned exactly once; the secret is never
// exposed again after this response.
func (s *TFAService) BeginEnrollment(ctx context.Context, accountID uuid.UUID) (*domain.TFAEnrollment, error) {
	account, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.TFAEnabled {
		return nil, domain.ErrTFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.config.Issuer,
		AccountName: account.Email,
		Period:      totpPeriod,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return nil, fmt.Errorf("generate TOTP key: %w", err)
	}

	encrypted, err := s.encryptSecret(key.Secret())
	if err != nil {
		return nil, err
	}
	if err := s.store.SetTFAPending(ctx, accountID, encrypted); err != nil {
		return nil, err
	}

	return &domain.TFAEnrollment{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
	}, nil
}

// ConfirmEnrollment validates a code against the pending secret and flips
// the account to Enabled. On failure the secret stays Pending.
func (s *TFAService) ConfirmEnrollment(ctx context.Context, accountID uuid.UUID, code string) error {
	account, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.TFAEnabled {
		return domain.ErrTFAAlreadyEnabled
	}
	if !account.TFAPending() {
		return domain.ErrTFANotPending
	}

	ok, err := s.validateCode(*account.TFASecretEncrypted, code)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidTFACode
	}

	if err := s.store.EnableTFA(ctx, accountID); err != nil {
		return err
	}
	s.audit.Record(AuditEvent{
		EventType: EventTFAEnabled,
		AccountID: account.ID.String(),
		Email:     account.Email,
		Outcome:   "success",
	})
	return nil
}

// VerifyLogin checks a per-login code for an account with two-factor
// enabled. Pure check within the skew window; does not mutate state.
func (s *TFAService) VerifyLogin(ctx context.Context, account *domain.Account, code string) (bool, error) {
	if !account.TFAEnabled || account.TFASecretEncrypted == nil {
		return false, domain.ErrTFANotEnabled
	}
	return s.validateCode(*account.TFASecretEncrypted, code)
}

// Disable clears the secret and flags back to Disabled. Requires prior
// authentication; that is the caller's responsibility.
func (s *TFAService) Disable(ctx context.Context, accountID uuid.UUID) error {
	account, err := s.store.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if err := s.store.DisableTFA(ctx, accountID); err != nil {
		return err
	}
	s.audit.Record(AuditEvent{
		EventType: EventTFADisabled,
		AccountID: account.ID.String(),
		Email:     account.Email,
		Outcome:   "success",
	})
	return nil
}

func (s *TFAService) validateCode(encryptedSecret, code string) (bool, error) {
	secret, err := s.decryptSecret(encryptedSecret)
	if err != nil {
		return false, err
	}
	valid, err := totp.ValidateCustom(code, secret, s.clock.Now(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false, fmt.Errorf("validate TOTP code: %w", err)
	}
	return valid, nil
}

// encryptSecret encrypts a TOTP secret with AES-256-GCM for storage.
func (s *TFAService) encryptSecret(plaintext string) (string, error) {
	block, err := aes.NewCipher(s.config.EncryptionKey)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (s *TFAService) decryptSecret(encrypted string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	block, err := aes.NewCipher(s.config.EncryptionKey)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("create GCM: %w", err)
	}

	if len(ciphertext) < gcm.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt secret: %w", err)
	}
	return string(plaintext), nil
}
