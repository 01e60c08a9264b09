package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/meetthepeople/mtp/internal/api"
	"github.com/meetthepeople/mtp/internal/profile"
	"github.com/meetthepeople/mtp/internal/view"
)

func (a *app) printYAML(v any) error {
	enc := yaml.NewEncoder(a.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func userCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "user <user-id>",
		Short: "Show another user's profile",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, true, func(ctx context.Context, a *app, args []string) error {
			id, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			user, err := a.client.UserProfile(ctx, id)
			if err != nil {
				return err
			}
			pics, err := a.client.ProfilePics(ctx, id)
			if err != nil {
				return err
			}
			return view.Profile(a.out, user, view.NewCarousel(pics))
		}),
	}
}

func searchCmd(opts *rootOptions) *cobra.Command {
	var (
		gender      string
		pincode     string
		ageGroup    string
		maxDistance float64
		useLocation bool
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find people",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = run(opts, true, func(ctx context.Context, a *app, _ []string) error {
		q := api.SearchQuery{
			Pincode:  strings.TrimSpace(pincode),
			AgeGroup: strings.TrimSpace(ageGroup),
		}
		if strings.TrimSpace(gender) != "" {
			g, err := api.ParseGender(gender)
			if err != nil {
				return err
			}
			q.Gender = g
		}
		if cmd.Flags().Changed("max-distance") {
			q.MaxDistanceKm = &maxDistance
		}
		if useLocation {
			me, err := a.currentUser(ctx)
			if err != nil {
				return err
			}
			if me.Latitude == nil || me.Longitude == nil {
				return errors.New("your profile has no location; set --latitude and --longitude with `mtp profile edit`")
			}
			q.UserLatitude, q.UserLongitude = me.Latitude, me.Longitude
		}
		results, err := a.client.SearchUsers(ctx, q)
		if err != nil {
			return err
		}
		return view.SearchResults(a.out, results, time.Now())
	})
	cmd.Flags().StringVar(&gender, "gender", "", "MALE, FEMALE or OTHER")
	cmd.Flags().StringVar(&pincode, "pincode", "", "pincode")
	cmd.Flags().StringVar(&ageGroup, "age-group", "", "age group, e.g. 18-25")
	cmd.Flags().Float64Var(&maxDistance, "max-distance", 0, "maximum distance in km")
	cmd.Flags().BoolVar(&useLocation, "near-me", false, "search around your profile location")
	return cmd
}

func chatCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Read and send messages",
	}
	cmd.AddCommand(chatShowCmd(opts), chatSendCmd(opts), chatDeleteCmd(opts))
	return cmd
}

func chatShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show the conversation with a user",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, true, func(ctx context.Context, a *app, args []string) error {
			id, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			me, err := a.currentUser(ctx)
			if err != nil {
				return err
			}
			msgs, err := a.client.Conversation(ctx, id)
			if err != nil {
				return err
			}
			if err := a.session.AddPeers(ctx, id); err != nil {
				return err
			}
			return view.Messages(a.out, msgs, me.ID, time.Now())
		}),
	}
}

func chatSendCmd(opts *rootOptions) *cobra.Command {
	var (
		text  string
		image string
		voice string
	)
	cmd := &cobra.Command{
		Use:   "send <user-id>",
		Short: "Send a text, image or voice message",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, true, func(ctx context.Context, a *app, args []string) error {
			id, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			var msg api.Message
			switch {
			case image != "" && voice != "":
				return errors.New("send either --image or --voice, not both")
			case image != "":
				msg, err = sendMedia(ctx, a, id, api.MessageImage, text, image)
			case voice != "":
				msg, err = sendMedia(ctx, a, id, api.MessageVoice, text, voice)
			case strings.TrimSpace(text) != "":
				msg, err = a.client.SendMessage(ctx, api.MessageInput{ReceiverID: id, MessageType: api.MessageText, TextContent: text})
			default:
				return errors.New("nothing to send; use --text, --image or --voice")
			}
			if err != nil {
				return err
			}
			if err := a.session.AddPeers(ctx, id); err != nil {
				return err
			}
			a.printf("Sent message %d.\n", msg.ID)
			return nil
		}),
	}
	cmd.Flags().StringVar(&text, "text", "", "message text (caption for media)")
	cmd.Flags().StringVar(&image, "image", "", "path of an image to send")
	cmd.Flags().StringVar(&voice, "voice", "", "path of a voice recording to send")
	return cmd
}

func sendMedia(ctx context.Context, a *app, receiverID int64, kind api.MessageType, text string, path string) (api.Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return api.Message{}, fmt.Errorf("open media: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return api.Message{}, fmt.Errorf("stat media: %w", err)
	}
	if info.Size() > profile.MaxUploadBytes {
		return api.Message{}, profile.ErrTooLarge
	}
	return a.client.SendMediaMessage(ctx, receiverID, kind, text, api.Upload{
		FileName: filepath.Base(path),
		Body:     f,
	})
}

func chatDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <message-id>",
		Short: "Delete one of your messages",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, true, func(ctx context.Context, a *app, args []string) error {
			id, err := parseID(args[0], "message")
			if err != nil {
				return err
			}
			if err := a.client.DeleteMessage(ctx, id); err != nil {
				return err
			}
			a.printf("Deleted message %d.\n", id)
			return nil
		}),
	}
}

func blockCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "block",
		Short: "Manage blocked users",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <user-id>",
			Short: "Block a user",
			Args:  cobra.ExactArgs(1),
			RunE: run(opts, true, func(ctx context.Context, a *app, args []string) error {
				id, err := parseID(args[0], "user")
				if err != nil {
					return err
				}
				if err := a.client.BlockUser(ctx, id); err != nil {
					return err
				}
				if err := a.session.RemovePeer(ctx, id); err != nil {
					return err
				}
				a.printf("Blocked user %d.\n", id)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "remove <user-id>",
			Short: "Unblock a user",
			Args:  cobra.ExactArgs(1),
			RunE: run(opts, true, func(ctx context.Context, a *app, args []string) error {
				id, err := parseID(args[0], "user")
				if err != nil {
					return err
				}
				if err := a.client.UnblockUser(ctx, id); err != nil {
					return err
				}
				a.printf("Unblocked user %d.\n", id)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "list",
			Short: "List blocked users",
			Args:  cobra.NoArgs,
			RunE: run(opts, true, func(ctx context.Context, a *app, _ []string) error {
				blocks, err := a.client.BlockedUsers(ctx)
				if err != nil {
					return err
				}
				return view.BlockList(a.out, blocks)
			}),
		},
		&cobra.Command{
			Use:   "check <user-id>",
			Short: "Check whether you blocked a user",
			Args:  cobra.ExactArgs(1),
			RunE: run(opts, true, func(ctx context.Context, a *app, args []string) error {
				id, err := parseID(args[0], "user")
				if err != nil {
					return err
				}
				blocked, err := a.client.BlockStatus(ctx, id)
				if err != nil {
					return err
				}
				if blocked {
					a.printf("User %d is blocked.\n", id)
				} else {
					a.printf("User %d is not blocked.\n", id)
				}
				return nil
			}),
		},
	)
	return cmd
}

func activityCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Inspect or report your presence",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show when you were last active",
			Args:  cobra.NoArgs,
			RunE: run(opts, true, func(ctx context.Context, a *app, _ []string) error {
				status, err := a.client.ActivityStatus(ctx)
				if err != nil {
					return err
				}
				return view.Activity(a.out, status, time.Now())
			}),
		},
		&cobra.Command{
			Use:   "ping",
			Short: "Report presence once",
			Args:  cobra.NoArgs,
			RunE: run(opts, true, func(ctx context.Context, a *app, _ []string) error {
				if err := a.session.SetLastReport(ctx, time.Now()); err != nil {
					return err
				}
				if err := a.client.CaptureActivity(ctx, a.cfg.Heartbeat.Source); err != nil {
					return err
				}
				a.printf("Presence reported (%s).\n", a.cfg.Heartbeat.Source)
				return nil
			}),
		},
	)
	return cmd
}

func retentionCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retention",
		Short: "Message retention settings",
	}

	var (
		count   int
		enabled bool
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Change how many messages are kept per conversation",
		Args:  cobra.NoArgs,
	}
	set.RunE = run(opts, true, func(ctx context.Context, a *app, _ []string) error {
		cfg, err := a.client.RetentionConfig(ctx)
		if err != nil {
			return err
		}
		if set.Flags().Changed("count") {
			cfg.RetentionCount = count
		}
		if set.Flags().Changed("enabled") {
			cfg.Enabled = enabled
		}
		msg, err := a.client.UpdateRetentionConfig(ctx, cfg)
		if err != nil {
			return err
		}
		if msg != "" {
			a.printf("%s\n", msg)
		}
		return a.printYAML(cfg)
	})
	set.Flags().IntVar(&count, "count", 0, "messages to keep per conversation (1-100)")
	set.Flags().BoolVar(&enabled, "enabled", true, "enable retention")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the retention settings",
			Args:  cobra.NoArgs,
			RunE: run(opts, true, func(ctx context.Context, a *app, _ []string) error {
				cfg, err := a.client.RetentionConfig(ctx)
				if err != nil {
					return err
				}
				return a.printYAML(cfg)
			}),
		},
		set,
		&cobra.Command{
			Use:   "stats <user-id>",
			Short: "Show retention statistics for a conversation",
			Args:  cobra.ExactArgs(1),
			RunE: run(opts, true, func(ctx context.Context, a *app, args []string) error {
				id, err := parseID(args[0], "user")
				if err != nil {
					return err
				}
				stats, err := a.client.RetentionStats(ctx, id)
				if err != nil {
					return err
				}
				return a.printYAML(stats)
			}),
		},
		&cobra.Command{
			Use:   "cleanup <user-id>",
			Short: "Apply retention to a conversation now",
			Args:  cobra.ExactArgs(1),
			RunE: run(opts, true, func(ctx context.Context, a *app, args []string) error {
				id, err := parseID(args[0], "user")
				if err != nil {
					return err
				}
				msg, err := a.client.CleanupConversation(ctx, id)
				if err != nil {
					return err
				}
				a.printf("%s\n", view.OrNotSet(msg))
				return nil
			}),
		},
	)
	return cmd
}

func healthCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the API server",
		Args:  cobra.NoArgs,
		RunE: run(opts, false, func(ctx context.Context, a *app, _ []string) error {
			status, err := a.client.Health(ctx)
			if err != nil {
				return err
			}
			return a.printYAML(status)
		}),
	}
}
