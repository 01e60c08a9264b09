package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const appName = "mtp"

type rootOptions struct {
	configPath string
	ephemeral  bool
}

func main() {
	configureLogOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Meet The People terminal client",
		Long: `mtp is a terminal client for the Meet The People service.

Sign in with your mobile number and an OTP, keep your profile and pictures
up to date, and follow your conversations. While the home screen is open the
client reports your presence so others see you online.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfigPath(), "path to config yaml")
	cmd.PersistentFlags().BoolVar(&opts.ephemeral, "ephemeral", false, "keep the session in memory for this invocation only")

	cmd.AddCommand(
		loginCmd(opts),
		verifyCmd(opts),
		resendCmd(opts),
		cancelCmd(opts),
		logoutCmd(opts),
		whoamiCmd(opts),
		homeCmd(opts),
		profileCmd(opts),
		userCmd(opts),
		searchCmd(opts),
		chatCmd(opts),
		blockCmd(opts),
		activityCmd(opts),
		retentionCmd(opts),
		healthCmd(opts),
	)
	return cmd
}
