// Package auth drives the mobile number + OTP login.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/meetthepeople/mtp/internal/api"
	"github.com/meetthepeople/mtp/internal/session"
)

const (
	mobileDigits = 10
	otpDigits    = 6

	// ResendCooldown is how long after an OTP request a resend is refused.
	ResendCooldown = 30 * time.Second
)

var (
	ErrInvalidMobile  = errors.New("enter a valid 10-digit mobile number")
	ErrInvalidOTP     = errors.New("enter a valid 6-digit OTP")
	ErrNoPendingLogin = errors.New("no pending login; request an OTP first")
)

// ResendTooSoonError is returned by ResendOTP while the cooldown runs.
type ResendTooSoonError struct {
	Remaining time.Duration
}

func (e *ResendTooSoonError) Error() string {
	secs := int((e.Remaining + time.Second - 1) / time.Second)
	return fmt.Sprintf("resend available in %ds", secs)
}

// OTPClient is the part of api.Client the flow needs.
type OTPClient interface {
	GenerateOTP(ctx context.Context, mobile string) (string, error)
	Login(ctx context.Context, mobile string, otp string) (api.LoginResult, error)
}

type Flow struct {
	client  OTPClient
	session *session.Session
	now     func() time.Time
}

func NewFlow(client OTPClient, s *session.Session) *Flow {
	return &Flow{client: client, session: s, now: time.Now}
}

// NormalizeMobile strips everything but digits and checks the length.
func NormalizeMobile(raw string) (string, error) {
	mobile := digitsOnly(raw)
	if len(mobile) != mobileDigits {
		return "", ErrInvalidMobile
	}
	return mobile, nil
}

func validOTP(raw string) (string, error) {
	otp := strings.TrimSpace(raw)
	if len(otp) != otpDigits || digitsOnly(otp) != otp {
		return "", ErrInvalidOTP
	}
	return otp, nil
}

func digitsOnly(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RequestOTP asks the server to send an OTP and remembers the mobile number
// for VerifyOTP. It returns the server's message.
func (f *Flow) RequestOTP(ctx context.Context, rawMobile string) (string, error) {
	mobile, err := NormalizeMobile(rawMobile)
	if err != nil {
		return "", err
	}
	msg, err := f.client.GenerateOTP(ctx, mobile)
	if err != nil {
		log.Printf("event=otp_request_failed err=%v", err)
		return "", errors.New(api.ErrorMessage(err, "failed to generate OTP, please try again"))
	}
	if err := f.session.SetPendingMobile(ctx, mobile); err != nil {
		return "", err
	}
	if err := f.session.SetOTPSentAt(ctx, f.now()); err != nil {
		return "", err
	}
	log.Printf("event=otp_requested mobile=%s", maskMobile(mobile))
	return msg, nil
}

// VerifyOTP logs in with the pending mobile number and stores the returned
// token and user.
func (f *Flow) VerifyOTP(ctx context.Context, rawOTP string) (api.User, error) {
	mobile, ok, err := f.session.PendingMobile(ctx)
	if err != nil {
		return api.User{}, err
	}
	if !ok {
		return api.User{}, ErrNoPendingLogin
	}
	otp, err := validOTP(rawOTP)
	if err != nil {
		return api.User{}, err
	}

	result, err := f.client.Login(ctx, mobile, otp)
	if err != nil {
		log.Printf("event=otp_verify_failed mobile=%s err=%v", maskMobile(mobile), err)
		return api.User{}, errors.New(api.ErrorMessage(err, "failed to verify OTP, please try again"))
	}
	if err := f.session.SetLogin(ctx, result.Token, result.User); err != nil {
		return api.User{}, err
	}
	if err := f.session.ClearPendingMobile(ctx); err != nil {
		return api.User{}, err
	}
	log.Printf("event=login_completed user_id=%d", result.User.ID)
	return result.User, nil
}

// ResendIn reports how long until ResendOTP is allowed.
func (f *Flow) ResendIn(ctx context.Context) (time.Duration, error) {
	sentAt, ok, err := f.session.OTPSentAt(ctx)
	if err != nil || !ok {
		return 0, err
	}
	remaining := ResendCooldown - f.now().Sub(sentAt)
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

func (f *Flow) ResendOTP(ctx context.Context) (string, error) {
	mobile, ok, err := f.session.PendingMobile(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoPendingLogin
	}
	remaining, err := f.ResendIn(ctx)
	if err != nil {
		return "", err
	}
	if remaining > 0 {
		return "", &ResendTooSoonError{Remaining: remaining}
	}

	// The cooldown restarts even when the request fails.
	if err := f.session.SetOTPSentAt(ctx, f.now()); err != nil {
		return "", err
	}
	msg, err := f.client.GenerateOTP(ctx, mobile)
	if err != nil {
		log.Printf("event=otp_resend_failed mobile=%s err=%v", maskMobile(mobile), err)
		return "", errors.New(api.ErrorMessage(err, "failed to resend OTP, please try again"))
	}
	log.Printf("event=otp_resent mobile=%s", maskMobile(mobile))
	return msg, nil
}

// CancelLogin forgets the pending mobile number.
func (f *Flow) CancelLogin(ctx context.Context) error {
	return f.session.ClearPendingMobile(ctx)
}

func (f *Flow) Logout(ctx context.Context) error {
	if err := f.session.End(ctx); err != nil {
		return err
	}
	log.Printf("event=logout_completed session=%s", f.session.ID())
	return nil
}

func (f *Flow) Authenticated(ctx context.Context) (bool, error) {
	return f.session.Authenticated(ctx)
}

func maskMobile(mobile string) string {
	if len(mobile) <= 4 {
		return mobile
	}
	return strings.Repeat("*", len(mobile)-4) + mobile[len(mobile)-4:]
}
