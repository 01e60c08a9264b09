package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meetthepeople/mtp/internal/api"
	"github.com/meetthepeople/mtp/internal/session"
)

type fakeOTPClient struct {
	generated []string
	logins    [][2]string
	genErr    error
	loginErr  error
}

func (c *fakeOTPClient) GenerateOTP(_ context.Context, mobile string) (string, error) {
	c.generated = append(c.generated, mobile)
	if c.genErr != nil {
		return "", c.genErr
	}
	return "OTP sent successfully", nil
}

func (c *fakeOTPClient) Login(_ context.Context, mobile string, otp string) (api.LoginResult, error) {
	c.logins = append(c.logins, [2]string{mobile, otp})
	if c.loginErr != nil {
		return api.LoginResult{}, c.loginErr
	}
	return api.LoginResult{Token: "jwt-token", User: api.User{ID: 12, Mobile: mobile, Name: "Asha"}}, nil
}

func newTestFlow(client *fakeOTPClient) (*Flow, *session.Session, *time.Time) {
	s := session.New(session.NewMemoryStore())
	f := NewFlow(client, s)
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	f.now = func() time.Time { return now }
	return f, s, &now
}

func TestNormalizeMobile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "9876543210", want: "9876543210"},
		{in: "98765-43210", want: "9876543210"},
		{in: " (987) 654 3210 ", want: "9876543210"},
		{in: "987654321", wantErr: true},
		{in: "98765432101", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tests {
		got, err := NormalizeMobile(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrInvalidMobile) {
				t.Fatalf("NormalizeMobile(%q) error = %v, want ErrInvalidMobile", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("NormalizeMobile(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestLoginFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := &fakeOTPClient{}
	f, s, _ := newTestFlow(client)

	if _, err := f.RequestOTP(ctx, "98765 43210"); err != nil {
		t.Fatalf("RequestOTP() error = %v", err)
	}
	if len(client.generated) != 1 || client.generated[0] != "9876543210" {
		t.Fatalf("GenerateOTP calls = %v", client.generated)
	}
	if m, ok, _ := s.PendingMobile(ctx); !ok || m != "9876543210" {
		t.Fatalf("PendingMobile() = %q, %t", m, ok)
	}

	if _, err := f.VerifyOTP(ctx, "12345"); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("VerifyOTP(short) error = %v, want ErrInvalidOTP", err)
	}
	if _, err := f.VerifyOTP(ctx, "12a456"); !errors.Is(err, ErrInvalidOTP) {
		t.Fatalf("VerifyOTP(non-digit) error = %v, want ErrInvalidOTP", err)
	}
	if len(client.logins) != 0 {
		t.Fatalf("Login called with invalid OTP: %v", client.logins)
	}

	user, err := f.VerifyOTP(ctx, "123456")
	if err != nil {
		t.Fatalf("VerifyOTP() error = %v", err)
	}
	if user.ID != 12 {
		t.Fatalf("VerifyOTP() user = %+v", user)
	}
	if ok, _ := f.Authenticated(ctx); !ok {
		t.Fatal("Authenticated() = false after VerifyOTP")
	}
	if _, ok, _ := s.PendingMobile(ctx); ok {
		t.Fatal("pending mobile kept after login")
	}

	if err := f.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if ok, _ := f.Authenticated(ctx); ok {
		t.Fatal("Authenticated() = true after Logout")
	}
}

func TestRequestOTPRejectsInvalidMobile(t *testing.T) {
	t.Parallel()

	client := &fakeOTPClient{}
	f, _, _ := newTestFlow(client)
	if _, err := f.RequestOTP(context.Background(), "12345"); !errors.Is(err, ErrInvalidMobile) {
		t.Fatalf("RequestOTP() error = %v, want ErrInvalidMobile", err)
	}
	if len(client.generated) != 0 {
		t.Fatal("GenerateOTP called for invalid mobile")
	}
}

func TestRequestOTPServerMessage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := &fakeOTPClient{genErr: &api.Error{StatusCode: 400, Message: "Too many requests"}}
	f, s, _ := newTestFlow(client)

	_, err := f.RequestOTP(ctx, "9876543210")
	if err == nil || err.Error() != "Too many requests" {
		t.Fatalf("RequestOTP() error = %v, want server message", err)
	}
	if _, ok, _ := s.PendingMobile(ctx); ok {
		t.Fatal("pending mobile stored after failed request")
	}

	client.genErr = errors.New("dial tcp: refused")
	if _, err := f.RequestOTP(ctx, "9876543210"); err == nil || err.Error() != "failed to generate OTP, please try again" {
		t.Fatalf("RequestOTP() error = %v, want fallback message", err)
	}
}

func TestVerifyWithoutPendingLogin(t *testing.T) {
	t.Parallel()

	f, _, _ := newTestFlow(&fakeOTPClient{})
	if _, err := f.VerifyOTP(context.Background(), "123456"); !errors.Is(err, ErrNoPendingLogin) {
		t.Fatalf("VerifyOTP() error = %v, want ErrNoPendingLogin", err)
	}
	if _, err := f.ResendOTP(context.Background()); !errors.Is(err, ErrNoPendingLogin) {
		t.Fatalf("ResendOTP() error = %v, want ErrNoPendingLogin", err)
	}
}

func TestResendCooldown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := &fakeOTPClient{}
	f, _, now := newTestFlow(client)

	if _, err := f.RequestOTP(ctx, "9876543210"); err != nil {
		t.Fatalf("RequestOTP() error = %v", err)
	}

	*now = now.Add(10 * time.Second)
	_, err := f.ResendOTP(ctx)
	var tooSoon *ResendTooSoonError
	if !errors.As(err, &tooSoon) {
		t.Fatalf("ResendOTP() error = %v, want ResendTooSoonError", err)
	}
	if tooSoon.Remaining != 20*time.Second || tooSoon.Error() != "resend available in 20s" {
		t.Fatalf("ResendTooSoonError = %v (%s)", tooSoon.Remaining, tooSoon)
	}

	*now = now.Add(20 * time.Second)
	if _, err := f.ResendOTP(ctx); err != nil {
		t.Fatalf("ResendOTP() error = %v", err)
	}
	if len(client.generated) != 2 {
		t.Fatalf("GenerateOTP calls = %d, want 2", len(client.generated))
	}
	if d, _ := f.ResendIn(ctx); d != ResendCooldown {
		t.Fatalf("ResendIn() = %s, want %s", d, ResendCooldown)
	}
}

func TestCancelLogin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f, s, _ := newTestFlow(&fakeOTPClient{})
	if _, err := f.RequestOTP(ctx, "9876543210"); err != nil {
		t.Fatalf("RequestOTP() error = %v", err)
	}
	if err := f.CancelLogin(ctx); err != nil {
		t.Fatalf("CancelLogin() error = %v", err)
	}
	if _, ok, _ := s.PendingMobile(ctx); ok {
		t.Fatal("pending mobile kept after CancelLogin")
	}
	if d, _ := f.ResendIn(ctx); d != 0 {
		t.Fatalf("ResendIn() = %s after cancel, want 0", d)
	}
}

func TestMaskMobile(t *testing.T) {
	t.Parallel()

	if got := maskMobile("9876543210"); got != "******3210" {
		t.Fatalf("maskMobile() = %q", got)
	}
}
