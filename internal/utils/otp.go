package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"math/big"
)

var otpSpace = big.NewInt(1_000_000)

// GenerateOTP returns a uniformly random six digit code.
func GenerateOTP() string {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		panic("crypto/rand unavailable: " + err.Error())
	}
	code := n.String()
	for len(code) < OTPLength {
		code = "0" + code
	}
	return code
}

func ValidateOTP(otp string) bool {
	if len(otp) != OTPLength {
		return false
	}
	for _, char := range otp {
		if char < '0' || char > '9' {
			return false
		}
	}
	return true
}

// HashData is the unsalted digest a hosted send-otp function may return in
// place of the code.
func HashData(data string) string {
	hash := sha256.Sum256([]byte(data))
	return base64.StdEncoding.EncodeToString(hash[:])
}

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
