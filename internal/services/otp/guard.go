package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"paydesk_backend/internal/gateway"
	"paydesk_backend/internal/logger"
	"paydesk_backend/internal/models"
	"paydesk_backend/pkg/apperrors"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultTTL         = 120 * time.Second
	DefaultMaxAttempts = 3

	codeMin   = 10000
	codeRange = 90000
)

// SMSSender delivers the code to the merchant's phone.
type SMSSender interface {
	SendSMS(ctx context.Context, req gateway.SMSRequest) error
}

type Config struct {
	TTL         time.Duration
	MaxAttempts int
	BcryptCost  int
	Sender      string
}

// Guard issues and verifies withdrawal confirmation codes.
//
// Per (structure, method) a session goes NONE -> PENDING -> VERIFIED, EXPIRED
// or EXHAUSTED, and every terminal state deletes it. Attempts are counted
// before the comparison, including on the call that succeeds.
type Guard struct {
	store Store
	sms   SMSSender
	cfg   Config
	now   func() time.Time
	code  func() (string, error)
}

func NewGuard(store Store, sms SMSSender, cfg Config) *Guard {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Guard{
		store: store,
		sms:   sms,
		cfg:   cfg,
		now:   time.Now,
		code:  generateCode,
	}
}

// Issue stores a fresh code for (structureID, method), replacing any pending
// one, and sends it by SMS. When the SMS fails the session is rolled back.
func (g *Guard) Issue(ctx context.Context, structureID, phone string, method models.PaymentMethod, amount int64) (time.Time, error) {
	code, err := g.code()
	if err != nil {
		return time.Time{}, apperrors.InternalError(fmt.Errorf("generate otp: %w", err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), g.cfg.BcryptCost)
	if err != nil {
		return time.Time{}, apperrors.InternalError(fmt.Errorf("hash otp: %w", err))
	}

	now := g.now()
	session := &models.OTPSession{
		StructureID: structureID,
		Method:      method,
		CodeHash:    string(hash),
		Phone:       phone,
		Amount:      amount,
		ExpiresAt:   now.Add(g.cfg.TTL),
		Attempts:    0,
		CreatedAt:   now,
	}
	if err := g.store.Put(ctx, session); err != nil {
		return time.Time{}, apperrors.InternalError(fmt.Errorf("store otp: %w", err))
	}

	err = g.sms.SendSMS(ctx, gateway.SMSRequest{
		Phone:   phone,
		Message: Message(code, amount, method, g.cfg.TTL),
		Sender:  g.cfg.Sender,
	})
	if err != nil {
		g.rollback(ctx, session)
		logger.CtxWithError(ctx, "OTP delivery failed, session rolled back", err,
			"structure_id", structureID,
			"method", method)
		return time.Time{}, apperrors.OTPDeliveryFailed(err)
	}

	logger.CtxInfo(ctx, "OTP issued", "structure_id", structureID, "method", method)
	return session.ExpiresAt, nil
}

// Verify checks code against the pending session and returns that session
// (phone and amount included) on success.
func (g *Guard) Verify(ctx context.Context, structureID string, method models.PaymentMethod, code string) (*models.OTPSession, error) {
	var (
		verified  *models.OTPSession
		verifyErr error
	)

	err := g.store.Update(ctx, structureID, method, func(s *models.OTPSession) Action {
		if g.now().After(s.ExpiresAt) {
			verifyErr = apperrors.ErrOTPExpired
			return Delete
		}
		if s.Attempts >= g.cfg.MaxAttempts {
			verifyErr = apperrors.ErrOTPExhausted
			return Delete
		}

		s.Attempts++

		if bcrypt.CompareHashAndPassword([]byte(s.CodeHash), []byte(strings.TrimSpace(code))) != nil {
			remaining := g.cfg.MaxAttempts - s.Attempts
			verifyErr = apperrors.OTPIncorrect(remaining)
			if remaining <= 0 {
				return Delete
			}
			return Save
		}

		out := *s
		out.CodeHash = ""
		verified = &out
		return Delete
	})
	if errors.Is(err, ErrNoSession) {
		return nil, apperrors.ErrOTPNoSession
	}
	if err != nil {
		return nil, apperrors.InternalError(fmt.Errorf("verify otp: %w", err))
	}
	if verifyErr != nil {
		logger.CtxWarn(ctx, "OTP verification failed",
			"structure_id", structureID,
			"method", method,
			"error", verifyErr)
		return nil, verifyErr
	}
	return verified, nil
}

// rollback deletes the session only if it is still the one just issued.
func (g *Guard) rollback(ctx context.Context, issued *models.OTPSession) {
	err := g.store.Update(context.WithoutCancel(ctx), issued.StructureID, issued.Method, func(s *models.OTPSession) Action {
		if s.CodeHash == issued.CodeHash {
			return Delete
		}
		return Keep
	})
	if err != nil && !errors.Is(err, ErrNoSession) {
		logger.CtxWithError(ctx, "OTP rollback failed", err, "structure_id", issued.StructureID)
	}
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}

// Message is the SMS text sent with a code.
func Message(code string, amount int64, method models.PaymentMethod, ttl time.Duration) string {
	return fmt.Sprintf(
		"Votre code de confirmation pour le retrait de %s FCFA via %s est : %s. Il expire dans %d minutes.",
		FormatAmount(amount), method.DisplayName(), code, int(ttl.Minutes()))
}

// FormatAmount groups thousands with a space: 1500000 -> "1 500 000".
func FormatAmount(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}
