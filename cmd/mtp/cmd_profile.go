package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/meetthepeople/mtp/internal/profile"
	"github.com/meetthepeople/mtp/internal/view"
)

func parseID(raw string, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, raw)
	}
	return id, nil
}

func parseIDs(raw []string, what string) ([]int64, error) {
	ids := make([]int64, 0, len(raw))
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			id, err := parseID(part, what)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// loadEditor runs fn against a freshly loaded profile editor.
func loadEditor(opts *rootOptions, fn func(ctx context.Context, a *app, e *profile.Editor, args []string) error) func(*cobra.Command, []string) error {
	return run(opts, true, func(ctx context.Context, a *app, args []string) error {
		e := profile.NewEditor(a.client, a.session)
		if err := e.Load(ctx); err != nil {
			return err
		}
		return fn(ctx, a, e, args)
	})
}

func profileCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View and edit your profile and pictures",
	}
	cmd.AddCommand(
		profileShowCmd(opts),
		profileEditCmd(opts),
		profilePicsCmd(opts),
		profileUploadCmd(opts),
		profileDeleteCmd(opts),
		profilePrimaryCmd(opts),
		profileReorderCmd(opts),
		profileDownloadCmd(opts),
	)
	return cmd
}

func profileShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show your profile",
		Args:  cobra.NoArgs,
		RunE: loadEditor(opts, func(_ context.Context, a *app, e *profile.Editor, _ []string) error {
			return view.Profile(a.out, e.Profile(), e.Pictures())
		}),
	}
}

var profileFields = []struct {
	flag  string
	field string
	usage string
}{
	{"name", "name", "display name (required)"},
	{"gender", "gender", "MALE, FEMALE or OTHER (required)"},
	{"dob", "dob", "date of birth, YYYY-MM-DD (required)"},
	{"address", "address", "address"},
	{"pincode", "pincode", "pincode"},
	{"latitude", "latitude", "latitude"},
	{"longitude", "longitude", "longitude"},
	{"hobbies", "hobbies", "comma-separated hobbies"},
	{"about", "aboutyou", "about you"},
}

func profileEditCmd(opts *rootOptions) *cobra.Command {
	values := make(map[string]*string, len(profileFields))
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit profile fields; unset flags keep their current value",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = loadEditor(opts, func(ctx context.Context, a *app, e *profile.Editor, _ []string) error {
		form := profile.FormFrom(e.Profile())
		for _, f := range profileFields {
			if !cmd.Flags().Changed(f.flag) {
				continue
			}
			if err := form.Set(f.field, *values[f.flag]); err != nil {
				return err
			}
		}
		user, err := e.Save(ctx, form)
		if err != nil {
			return err
		}
		a.printf("Profile updated successfully!\n\n")
		return view.Profile(a.out, user, nil)
	})
	for _, f := range profileFields {
		values[f.flag] = cmd.Flags().String(f.flag, "", f.usage)
	}
	return cmd
}

func profilePicsCmd(opts *rootOptions) *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "pics",
		Short: "Show your pictures",
		Args:  cobra.NoArgs,
		RunE: loadEditor(opts, func(_ context.Context, a *app, e *profile.Editor, _ []string) error {
			c := e.Pictures()
			if index > 0 {
				if err := c.Seek(index - 1); err != nil {
					return err
				}
			}
			return view.Pictures(a.out, c)
		}),
	}
	cmd.Flags().IntVar(&index, "index", 0, "1-based picture to show")
	return cmd
}

func profileUploadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a picture (images up to 10MB)",
		Args:  cobra.ExactArgs(1),
		RunE: loadEditor(opts, func(ctx context.Context, a *app, e *profile.Editor, args []string) error {
			pic, err := e.Upload(ctx, args[0])
			if err != nil {
				return err
			}
			primary := ""
			if pic.IsPrimary {
				primary = " as your primary picture"
			}
			a.printf("Profile picture uploaded successfully%s (id=%d).\n", primary, pic.ID)
			return nil
		}),
	}
}

func profileDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <picture-id>",
		Short: "Delete a picture",
		Args:  cobra.ExactArgs(1),
		RunE: loadEditor(opts, func(ctx context.Context, a *app, e *profile.Editor, args []string) error {
			id, err := parseID(args[0], "picture")
			if err != nil {
				return err
			}
			if err := e.Delete(ctx, id); err != nil {
				return err
			}
			return view.Pictures(a.out, e.Pictures())
		}),
	}
}

func profilePrimaryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "primary <picture-id>",
		Short: "Make a picture your primary one",
		Args:  cobra.ExactArgs(1),
		RunE: loadEditor(opts, func(ctx context.Context, a *app, e *profile.Editor, args []string) error {
			id, err := parseID(args[0], "picture")
			if err != nil {
				return err
			}
			if err := e.SetPrimary(ctx, id); err != nil {
				return err
			}
			return view.Pictures(a.out, e.Pictures())
		}),
	}
}

func profileReorderCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <picture-id>...",
		Short: "Set the display order of all your pictures",
		Args:  cobra.MinimumNArgs(1),
		RunE: loadEditor(opts, func(ctx context.Context, a *app, e *profile.Editor, args []string) error {
			ids, err := parseIDs(args, "picture")
			if err != nil {
				return err
			}
			if err := e.Reorder(ctx, ids); err != nil {
				return err
			}
			return view.Pictures(a.out, e.Pictures())
		}),
	}
}

func profileDownloadCmd(opts *rootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "download <picture-id>",
		Short: "Save a picture to a local file",
		Args:  cobra.ExactArgs(1),
		RunE: loadEditor(opts, func(ctx context.Context, a *app, e *profile.Editor, args []string) error {
			id, err := parseID(args[0], "picture")
			if err != nil {
				return err
			}
			path, n, err := e.Download(ctx, id, dir)
			if err != nil {
				return err
			}
			a.printf("Saved %s (%s)\n", path, humanize.IBytes(uint64(n)))
			return nil
		}),
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory to save into")
	return cmd
}
