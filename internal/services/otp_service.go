package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
	"swiftresponse/internal/utils"
	"swiftresponse/pkg/cache"
	"swiftresponse/pkg/functions"
	"swiftresponse/pkg/logger"
	"swiftresponse/pkg/sms"
)

// OTPStore is the subset of the Redis cache the OTP flow needs.
type OTPStore interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Increment(ctx context.Context, key string, expiration time.Duration) (int64, error)
}

type OTPService interface {
	SendOTP(ctx context.Context, phone string) (*OTPChallenge, error)
	VerifyOTP(ctx context.Context, request *VerifyOTPRequest) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*utils.TokenPair, error)
}

type OTPChallenge struct {
	Success   bool   `json:"success"`
	Token     string `json:"otp_token"`
	ExpiresIn int64  `json:"expires_in"`
	Phone     string `json:"phone"`
}

type VerifyOTPRequest struct {
	Token string `json:"otp_token" validate:"required"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type AuthResult struct {
	User    *models.UserProfile `json:"user"`
	Tokens  *utils.TokenPair    `json:"tokens"`
	NewUser bool                `json:"new_user"`
}

type OTPOptions struct {
	Expiry      time.Duration
	MaxAttempts int
	JWTSecret   string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	// Remote sends codes through the hosted send-otp function.
	Remote bool
}

const (
	otpSchemeBcrypt = "bcrypt"
	otpSchemeRemote = "remote"
)

type otpRecord struct {
	Phone  string `json:"phone"`
	Hash   string `json:"hash"`
	Scheme string `json:"scheme"`
}

type otpService struct {
	store         OTPStore
	userRepo      interfaces.UserRepository
	notifications NotificationService
	functions     *functions.Client
	opts          OTPOptions
	logger        *logger.Logger
}

func NewOTPService(
	store OTPStore,
	userRepo interfaces.UserRepository,
	notifications NotificationService,
	fn *functions.Client,
	opts OTPOptions,
	logger *logger.Logger,
) OTPService {
	if opts.Expiry <= 0 {
		opts.Expiry = utils.OTPExpiry
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	return &otpService{
		store:         store,
		userRepo:      userRepo,
		notifications: notifications,
		functions:     fn,
		opts:          opts,
		logger:        logger.WithField("service", "otp"),
	}
}

func otpKey(token string) string {
	return utils.CacheOTPPrefix + token
}

func otpAttemptsKey(token string) string {
	return utils.CacheOTPPrefix + "attempts:" + token
}

func (s *otpService) SendOTP(ctx context.Context, phone string) (*OTPChallenge, error) {
	if !utils.IsValidPhone(phone) {
		return nil, ErrInvalidPhone
	}
	phone = utils.NormalizePhone(phone)

	record := otpRecord{Phone: phone}
	if s.opts.Remote && s.functions != nil {
		result, err := s.functions.SendOTP(ctx, phone)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOTPSendFailed, err)
		}
		if !result.Success || result.OTPHash == "" {
			return nil, fmt.Errorf("%w: %s", ErrOTPSendFailed, result.Error)
		}
		record.Hash = result.OTPHash
		record.Scheme = otpSchemeRemote
	} else {
		code := utils.GenerateOTP()
		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash code: %w", err)
		}
		message := fmt.Sprintf("Your %s verification code is %s. It expires in %d minutes.",
			utils.AppName, code, int(s.opts.Expiry.Minutes()))
		if err := s.notifications.SendSMS(ctx, phone, message, sms.TypeOTP); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOTPSendFailed, err)
		}
		record.Hash = string(hash)
		record.Scheme = otpSchemeBcrypt
	}

	token := uuid.NewString()
	if err := s.store.Set(ctx, otpKey(token), record, s.opts.Expiry); err != nil {
		return nil, fmt.Errorf("failed to store verification code: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"phone":  utils.MaskPhone(phone),
		"scheme": record.Scheme,
	}).Info("Verification code sent")

	return &OTPChallenge{
		Success:   true,
		Token:     token,
		ExpiresIn: int64(s.opts.Expiry.Seconds()),
		Phone:     utils.MaskPhone(phone),
	}, nil
}

func (s *otpService) VerifyOTP(ctx context.Context, request *VerifyOTPRequest) (*AuthResult, error) {
	attempts, err := s.store.Increment(ctx, otpAttemptsKey(request.Token), s.opts.Expiry)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	if attempts > int64(s.opts.MaxAttempts) {
		_ = s.store.Delete(ctx, otpKey(request.Token))
		s.logger.LogSecurityEvent("otp_attempts_exceeded", "medium", map[string]interface{}{
			"attempts": attempts,
		})
		return nil, ErrTooManyAttempts
	}

	var record otpRecord
	if err := s.store.Get(ctx, otpKey(request.Token), &record); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrOTPExpired
		}
		return nil, fmt.Errorf("failed to load verification code: %w", err)
	}

	if !matchCode(record, strings.TrimSpace(request.Code)) {
		return nil, ErrInvalidOTP
	}
	_ = s.store.Delete(ctx, otpKey(request.Token), otpAttemptsKey(request.Token))

	user, created, err := s.findOrCreateUser(ctx, record.Phone)
	if err != nil {
		return nil, err
	}

	tokens, err := utils.GenerateTokenPair(user.ID, string(models.UserTypePatient), user.Phone,
		s.opts.JWTSecret, s.opts.AccessTTL, s.opts.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tokens: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":  user.ID,
		"new_user": created,
	}).Info("Phone verified")
	return &AuthResult{User: user, Tokens: tokens, NewUser: created}, nil
}

// Refresh issues a new pair for a patient refresh token. Staff tokens are
// provisioned elsewhere and are not refreshed here.
func (s *otpService) Refresh(ctx context.Context, refreshToken string) (*utils.TokenPair, error) {
	claims, err := utils.ValidateRefreshToken(refreshToken, s.opts.JWTSecret)
	if err != nil || claims.UserType != string(models.UserTypePatient) {
		return nil, ErrInvalidToken
	}
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return utils.GenerateTokenPair(user.ID, string(models.UserTypePatient), user.Phone,
		s.opts.JWTSecret, s.opts.AccessTTL, s.opts.RefreshTTL)
}

func matchCode(record otpRecord, code string) bool {
	switch record.Scheme {
	case otpSchemeBcrypt:
		return bcrypt.CompareHashAndPassword([]byte(record.Hash), []byte(code)) == nil
	case otpSchemeRemote:
		return utils.ConstantTimeEqual(utils.HashData(code), record.Hash) ||
			utils.ConstantTimeEqual(code, record.Hash)
	}
	return false
}

func (s *otpService) findOrCreateUser(ctx context.Context, phone string) (*models.UserProfile, bool, error) {
	user, err := s.userRepo.GetByPhone(ctx, phone)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, false, err
	}

	now := time.Now()
	user = &models.UserProfile{
		ID:             uuid.NewString(),
		Phone:          phone,
		SavedLocations: []models.SavedLocation{},
		Verification: models.VerificationStatus{
			ABHA: models.ABHAPending,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, interfaces.ErrDuplicate) {
			user, err = s.userRepo.GetByPhone(ctx, phone)
			return user, false, err
		}
		return nil, false, err
	}
	return user, true, nil
}
