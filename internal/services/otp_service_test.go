package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftresponse/internal/models"
	"swiftresponse/internal/utils"
	"swiftresponse/pkg/cache"
	"swiftresponse/pkg/functions"
	"swiftresponse/pkg/logger"
)

const testSecret = "test-secret"

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

func newOTPService(t *testing.T, h *harness, fn *functions.Client) (OTPService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	svc := NewOTPService(cache.NewRedisCacheFromClient(client), h.users, h.notifications, fn, OTPOptions{
		Expiry:      5 * time.Minute,
		MaxAttempts: 3,
		JWTSecret:   testSecret,
		AccessTTL:   time.Hour,
		RefreshTTL:  24 * time.Hour,
		Remote:      fn != nil,
	}, logger.Discard())
	return svc, mr
}

func lastCode(t *testing.T, r *recordingSMS) string {
	t.Helper()
	sent := r.messages()
	require.NotEmpty(t, sent)
	match := codePattern.FindStringSubmatch(sent[len(sent)-1].Message)
	require.Len(t, match, 2)
	return match[1]
}

func TestOTPSendAndVerifyCreatesPatient(t *testing.T) {
	h := newHarness(t)
	svc, _ := newOTPService(t, h, nil)
	ctx := context.Background()

	challenge, err := svc.SendOTP(ctx, "98123 45678")
	require.NoError(t, err)
	assert.True(t, challenge.Success)
	assert.NotEmpty(t, challenge.Token)
	assert.Equal(t, int64(300), challenge.ExpiresIn)
	assert.NotContains(t, challenge.Phone, "12345")

	code := lastCode(t, h.sms)
	assert.Equal(t, "+919812345678", h.sms.messages()[0].To)

	result, err := svc.VerifyOTP(ctx, &VerifyOTPRequest{Token: challenge.Token, Code: code})
	require.NoError(t, err)
	assert.True(t, result.NewUser)
	assert.Equal(t, "+919812345678", result.User.Phone)
	assert.Equal(t, models.ABHAPending, result.User.Verification.ABHA)

	claims, err := utils.ValidateToken(result.Tokens.AccessToken, testSecret)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, string(models.UserTypePatient), claims.UserType)

	// Codes are single use.
	_, err = svc.VerifyOTP(ctx, &VerifyOTPRequest{Token: challenge.Token, Code: code})
	assert.ErrorIs(t, err, ErrOTPExpired)

	again, err := svc.SendOTP(ctx, "+919812345678")
	require.NoError(t, err)
	result, err = svc.VerifyOTP(ctx, &VerifyOTPRequest{Token: again.Token, Code: lastCode(t, h.sms)})
	require.NoError(t, err)
	assert.False(t, result.NewUser)
}

func TestRefreshIssuesNewPair(t *testing.T) {
	h := newHarness(t)
	h.addPatient(t, "p1", nil)
	svc, _ := newOTPService(t, h, nil)
	ctx := context.Background()

	pair, err := utils.GenerateTokenPair("p1", string(models.UserTypePatient), "+919800000000", testSecret, time.Hour, 24*time.Hour)
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	claims, err := utils.ValidateToken(refreshed.AccessToken, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "p1", claims.UserID)

	_, err = svc.Refresh(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	staff, err := utils.GenerateTokenPair("hosp-001", string(models.UserTypeHospital), "", testSecret, time.Hour, time.Hour)
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, staff.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	ghost, err := utils.GenerateTokenPair("nobody", string(models.UserTypePatient), "", testSecret, time.Hour, time.Hour)
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, ghost.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestOTPWrongCodeAndAttemptLimit(t *testing.T) {
	h := newHarness(t)
	svc, _ := newOTPService(t, h, nil)
	ctx := context.Background()

	challenge, err := svc.SendOTP(ctx, "+919812345678")
	require.NoError(t, err)
	code := lastCode(t, h.sms)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < 3; i++ {
		_, err = svc.VerifyOTP(ctx, &VerifyOTPRequest{Token: challenge.Token, Code: wrong})
		assert.ErrorIs(t, err, ErrInvalidOTP)
	}
	_, err = svc.VerifyOTP(ctx, &VerifyOTPRequest{Token: challenge.Token, Code: code})
	assert.ErrorIs(t, err, ErrTooManyAttempts)
}

func TestOTPExpires(t *testing.T) {
	h := newHarness(t)
	svc, mr := newOTPService(t, h, nil)
	ctx := context.Background()

	challenge, err := svc.SendOTP(ctx, "+919812345678")
	require.NoError(t, err)
	mr.FastForward(6 * time.Minute)

	_, err = svc.VerifyOTP(ctx, &VerifyOTPRequest{Token: challenge.Token, Code: lastCode(t, h.sms)})
	assert.ErrorIs(t, err, ErrOTPExpired)
}

func TestOTPSendFailures(t *testing.T) {
	h := newHarness(t)
	svc, _ := newOTPService(t, h, nil)

	_, err := svc.SendOTP(context.Background(), "not a phone")
	assert.ErrorIs(t, err, ErrInvalidPhone)

	h.sms.fail = true
	_, err = svc.SendOTP(context.Background(), "+919812345678")
	assert.ErrorIs(t, err, ErrOTPSendFailed)
}

func TestOTPRemoteScheme(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"otp_hash":"482913"}`))
	}))
	t.Cleanup(srv.Close)
	svc, _ := newOTPService(t, h, functions.NewClient(functions.Config{BaseURL: srv.URL, APIKey: "anon-key"}))
	ctx := context.Background()

	challenge, err := svc.SendOTP(ctx, "+919812345678")
	require.NoError(t, err)
	assert.Empty(t, h.sms.messages())

	_, err = svc.VerifyOTP(ctx, &VerifyOTPRequest{Token: challenge.Token, Code: "111111"})
	assert.ErrorIs(t, err, ErrInvalidOTP)

	result, err := svc.VerifyOTP(ctx, &VerifyOTPRequest{Token: challenge.Token, Code: "482913"})
	require.NoError(t, err)
	assert.True(t, result.NewUser)
}

func TestMatchCode(t *testing.T) {
	remote := otpRecord{Scheme: otpSchemeRemote, Hash: utils.HashData("123456")}
	assert.True(t, matchCode(remote, "123456"))
	assert.False(t, matchCode(remote, "654321"))
	assert.False(t, matchCode(otpRecord{Scheme: "plain", Hash: "123456"}, "123456"))
}
