package functions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, APIKey: "anon-key"})
}

func TestSendSMS(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/send-sms", r.URL.Path)
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "+919876543210", body["to"])
		assert.Contains(t, body["message"], "maps")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	})

	result, err := client.SendSMS(context.Background(), "+919876543210", "SOS https://maps.google.com/?q=1,2")
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestSendSMS_Unsuccessful(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"error":"invalid number"}`))
	})

	result, err := client.SendSMS(context.Background(), "123", "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFunctionFailed)
	assert.Equal(t, "invalid number", result.Error)
}

func TestSendOTP(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/send-otp", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"otp_hash":"482913"}`))
	})

	result, err := client.SendOTP(context.Background(), "+919876543210")
	require.NoError(t, err)
	assert.Equal(t, "482913", result.OTPHash)
}

func TestInvoke_HTTPError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error":"upstream down"}`))
	})

	_, err := client.SendOTP(context.Background(), "+919876543210")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFunctionFailed)
	assert.Contains(t, err.Error(), "upstream down")
}
