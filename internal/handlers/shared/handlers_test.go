package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftresponse/internal/dispatch"
	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
	"swiftresponse/internal/services"
	"swiftresponse/internal/utils"
	"swiftresponse/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *utils.APIError `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err       error
		status    int
		code      string
		retryable bool
	}{
		{fmt.Errorf("transition: %w", dispatch.ErrInvalidTransition), http.StatusConflict, "INVALID_TRANSITION", false},
		{interfaces.ErrStatusConflict, http.StatusConflict, "STATUS_CONFLICT", true},
		{fmt.Errorf("get: %w", interfaces.ErrNotFound), http.StatusNotFound, "NOT_FOUND", false},
		{interfaces.ErrStoreUnavailable, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", true},
		{interfaces.ErrRecordClosed, http.StatusConflict, "RECORD_CLOSED", false},
		{services.ErrLocationRequired, http.StatusUnprocessableEntity, "LOCATION_REQUIRED", false},
		{services.ErrTooManyAttempts, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", false},
		{models.ErrInvalidABHA, http.StatusBadRequest, "INVALID_IDENTITY", false},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR", false},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		RespondError(c, logger.Discard(), tc.err)

		assert.Equal(t, tc.status, w.Code, tc.err.Error())
		env := decode(t, w)
		require.NotNil(t, env.Error)
		assert.Equal(t, tc.code, env.Error.Code)
		assert.Equal(t, tc.retryable, env.Error.Retryable, tc.code)
	}
}

func TestCanView(t *testing.T) {
	record := &models.EmergencyRecord{Patient: models.PatientSnapshot{UserID: "p1"}}

	assert.True(t, canView(record, "p1", models.UserTypePatient))
	assert.False(t, canView(record, "p2", models.UserTypePatient))
	assert.True(t, canView(record, "hosp-001", models.UserTypeHospital))
	assert.True(t, canView(record, "d1", models.UserTypeDriver))

	record.AssignedHospitalID = "hosp-001"
	record.AssignedDriverID = "d1"
	assert.True(t, canView(record, "hosp-001", models.UserTypeHospital))
	assert.False(t, canView(record, "hosp-002", models.UserTypeHospital))
	assert.False(t, canView(record, "d2", models.UserTypeDriver))
}

type stubOTP struct {
	sentTo string
	result *services.AuthResult
	err    error
}

func (s *stubOTP) SendOTP(_ context.Context, phone string) (*services.OTPChallenge, error) {
	s.sentTo = phone
	if s.err != nil {
		return nil, s.err
	}
	return &services.OTPChallenge{Success: true, Token: "tok", ExpiresIn: 300, Phone: utils.MaskPhone(phone)}, nil
}

func (s *stubOTP) VerifyOTP(context.Context, *services.VerifyOTPRequest) (*services.AuthResult, error) {
	return s.result, s.err
}

func (s *stubOTP) Refresh(context.Context, string) (*utils.TokenPair, error) {
	return nil, services.ErrInvalidToken
}

func authRouter(otp services.OTPService) *gin.Engine {
	h := NewAuthHandler(otp, logger.Discard())
	r := gin.New()
	r.POST("/otp/send", h.SendOTP)
	r.POST("/otp/verify", h.VerifyOTP)
	r.POST("/refresh", h.Refresh)
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestSendOTPNormalizesPhone(t *testing.T) {
	otp := &stubOTP{}
	w := post(authRouter(otp), "/otp/send", `{"phone":"98123 45678"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "+919812345678", otp.sentTo)

	var challenge services.OTPChallenge
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &challenge))
	assert.Equal(t, "tok", challenge.Token)
}

func TestSendOTPRejectsBadInput(t *testing.T) {
	otp := &stubOTP{}
	r := authRouter(otp)

	w := post(r, "/otp/send", `{"phone":"call me"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Details, "phone")
	assert.Empty(t, otp.sentTo)

	w = post(r, "/otp/send", `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyOTPStatusCodes(t *testing.T) {
	otp := &stubOTP{result: &services.AuthResult{User: &models.UserProfile{ID: "p1"}, NewUser: true}}
	r := authRouter(otp)

	w := post(r, "/otp/verify", `{"otp_token":"tok","code":"123456"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	otp.result.NewUser = false
	w = post(r, "/otp/verify", `{"otp_token":"tok","code":"123456"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = post(r, "/otp/verify", `{"otp_token":"tok","code":"12ab56"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	otp.err = services.ErrOTPExpired
	w = post(r, "/otp/verify", `{"otp_token":"tok","code":"123456"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "OTP_EXPIRED", decode(t, w).Error.Code)

	w = post(r, "/refresh", `{"refresh_token":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
