package main

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meetthepeople/mtp/internal/auth"
	"github.com/meetthepeople/mtp/internal/view"
)

func loginCmd(opts *rootOptions) *cobra.Command {
	var mobile string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Request an OTP for your mobile number",
		Args:  cobra.NoArgs,
		RunE: run(opts, false, func(ctx context.Context, a *app, _ []string) error {
			flow := auth.NewFlow(a.client, a.session)
			msg, err := flow.RequestOTP(ctx, mobile)
			if err != nil {
				return err
			}
			if strings.TrimSpace(msg) != "" {
				a.printf("%s\n", msg)
			}
			a.printf("Enter the 6-digit code with `mtp verify --otp <code>`.\n")
			return nil
		}),
	}
	cmd.Flags().StringVar(&mobile, "mobile", "", "10-digit mobile number")
	_ = cmd.MarkFlagRequired("mobile")
	return cmd
}

func verifyCmd(opts *rootOptions) *cobra.Command {
	var otp string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Complete login with the OTP you received",
		Args:  cobra.NoArgs,
		RunE: run(opts, false, func(ctx context.Context, a *app, _ []string) error {
			flow := auth.NewFlow(a.client, a.session)
			user, err := flow.VerifyOTP(ctx, otp)
			if err != nil {
				return err
			}
			name := user.Name
			if strings.TrimSpace(name) == "" {
				name = "User"
			}
			a.printf("Welcome, %s!\n", name)
			return nil
		}),
	}
	cmd.Flags().StringVar(&otp, "otp", "", "6-digit OTP")
	_ = cmd.MarkFlagRequired("otp")
	return cmd
}

func resendCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resend",
		Short: "Send the OTP again",
		Args:  cobra.NoArgs,
		RunE: run(opts, false, func(ctx context.Context, a *app, _ []string) error {
			flow := auth.NewFlow(a.client, a.session)
			msg, err := flow.ResendOTP(ctx)
			var tooSoon *auth.ResendTooSoonError
			if errors.As(err, &tooSoon) {
				a.printf("Resend OTP in %s.\n", strings.TrimPrefix(tooSoon.Error(), "resend available in "))
				return nil
			}
			if err != nil {
				return err
			}
			if strings.TrimSpace(msg) == "" {
				msg = "OTP sent again."
			}
			a.printf("%s\n", msg)
			return nil
		}),
	}
}

func cancelCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Abandon a pending login and return to mobile entry",
		Args:  cobra.NoArgs,
		RunE: run(opts, false, func(ctx context.Context, a *app, _ []string) error {
			return auth.NewFlow(a.client, a.session).CancelLogin(ctx)
		}),
	}
}

func logoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and end the session",
		Args:  cobra.NoArgs,
		RunE: run(opts, false, func(ctx context.Context, a *app, _ []string) error {
			if err := auth.NewFlow(a.client, a.session).Logout(ctx); err != nil {
				return err
			}
			a.printf("Signed out.\n")
			return nil
		}),
	}
}

func whoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: run(opts, false, func(ctx context.Context, a *app, _ []string) error {
			user, err := a.currentUser(ctx)
			if errors.Is(err, errNotLoggedIn) {
				if mobile, ok, _ := a.session.PendingMobile(ctx); ok {
					a.printf("Waiting for OTP for %s.\n", mobile)
					return nil
				}
			}
			if err != nil {
				return err
			}
			a.printf("[%s] %s (id=%d, +91 %s)\n", view.Initial(user.Name), view.OrNotSet(user.Name), user.ID, user.Mobile)
			return nil
		}),
	}
}
