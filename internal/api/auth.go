package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// GenerateOTP asks the server to send an OTP to mobile.
func (c *Client) GenerateOTP(ctx context.Context, mobile string) (string, error) {
	mobile = strings.TrimSpace(mobile)
	if mobile == "" {
		return "", errors.New("mobile is required")
	}
	req, err := jsonRequest(http.MethodPost, "/auth/generate-otp", map[string]string{"mobile": mobile})
	if err != nil {
		return "", err
	}
	return c.call(ctx, req, nil)
}

func (c *Client) Login(ctx context.Context, mobile string, otp string) (LoginResult, error) {
	mobile = strings.TrimSpace(mobile)
	otp = strings.TrimSpace(otp)
	if mobile == "" {
		return LoginResult{}, errors.New("mobile is required")
	}
	if otp == "" {
		return LoginResult{}, errors.New("otp is required")
	}
	req, err := jsonRequest(http.MethodPost, "/auth/login", map[string]string{"mobile": mobile, "otp": otp})
	if err != nil {
		return LoginResult{}, err
	}
	var out LoginResult
	if _, err := c.call(ctx, req, &out); err != nil {
		return LoginResult{}, err
	}
	if strings.TrimSpace(out.Token) == "" {
		return LoginResult{}, errors.New("login response has no token")
	}
	return out, nil
}
