package service

import (
	"Sodium/internal/pkg/consts"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyOTPLocksAfterMaxAttempts(t *testing.T) {
	store := newFakeStore()
	otp := NewOTPService(store, 10*time.Minute, 5)
	ctx := context.Background()

	code, err := otp.Generate(ctx, 7, consts.OTPContextEmailVerification)
	require.NoError(t, err)
	require.Len(t, code, 6)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 0; i < 5; i++ {
		err = otp.Verify(ctx, 7, consts.OTPContextEmailVerification, wrong)
		require.ErrorIs(t, err, ErrOTPIncorrect, "attempt %d", i+1)
		assert.Equal(t, "incorrect OTP", err.Error())
	}
	err = otp.Verify(ctx, 7, consts.OTPContextEmailVerification, wrong)
	require.ErrorIs(t, err, ErrOTPTooManyAttempts)
	assert.Equal(t, "too many attempts", err.Error())

	err = otp.Verify(ctx, 7, consts.OTPContextEmailVerification, code)
	assert.ErrorIs(t, err, ErrOTPTooManyAttempts)
}

func TestVerifyOTPSucceedsAndConsumesCode(t *testing.T) {
	store := newFakeStore()
	otp := NewOTPService(store, 10*time.Minute, 5)
	ctx := context.Background()

	code, err := otp.Generate(ctx, 7, consts.OTPContextPasswordReset)
	require.NoError(t, err)

	err = otp.Verify(ctx, 7, consts.OTPContextEmailVerification, code)
	assert.ErrorIs(t, err, ErrOTPExpired)

	require.NoError(t, otp.Verify(ctx, 7, consts.OTPContextPasswordReset, code))
	err = otp.Verify(ctx, 7, consts.OTPContextPasswordReset, code)
	assert.ErrorIs(t, err, ErrOTPExpired)
}

func TestGenerateOTPResetsAttempts(t *testing.T) {
	store := newFakeStore()
	otp := NewOTPService(store, 10*time.Minute, 2)
	ctx := context.Background()

	_, err := otp.Generate(ctx, 9, consts.OTPContextEmailVerification)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_ = otp.Verify(ctx, 9, consts.OTPContextEmailVerification, "abcdef")
	}

	code, err := otp.Generate(ctx, 9, consts.OTPContextEmailVerification)
	require.NoError(t, err)
	assert.NoError(t, otp.Verify(ctx, 9, consts.OTPContextEmailVerification, code))
}
