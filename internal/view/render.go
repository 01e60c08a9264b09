package view

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/meetthepeople/mtp/internal/api"
)

// printer keeps the first write error so renderers can print freely.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// ConversationCards renders the home screen list.
func ConversationCards(w io.Writer, list []api.Communication, now time.Time) error {
	p := &printer{w: w}
	p.printf("Conversations (%d)\n\n", len(list))
	if len(list) == 0 {
		p.printf("No conversations yet\nStart connecting with people around you!\n")
		return p.err
	}
	for _, c := range list {
		name := OrNotSet(c.UserName)
		p.printf("%s [%s] %s", OnlineDot(c.OnlineStatus), Initial(c.UserName), name)
		if ts := FormatRelative(c.LastMessageTime.Time, now); ts != "" {
			p.printf("  · %s", ts)
		}
		p.printf("\n    %s\n", LastMessagePreview(c))

		details := make([]string, 0, 2)
		if addr := strings.TrimSpace(c.UserAddress); addr != "" {
			details = append(details, addr)
		}
		if hobby := FirstHobby(c.UserHobbies); hobby != "" {
			details = append(details, hobby)
		}
		if len(details) > 0 {
			p.printf("    %s\n", strings.Join(details, " • "))
		}
		p.printf("    id=%d\n\n", c.UserID)
	}
	return p.err
}

// Profile renders the profile screen: the picture carousel followed by the
// profile details.
func Profile(w io.Writer, user api.User, pics *Carousel) error {
	p := &printer{w: w}
	p.printf("[%s] %s\n\n", Initial(user.Name), OrNotSet(user.Name))
	if pics != nil {
		if err := Pictures(w, pics); err != nil {
			return err
		}
		p.printf("\n")
	}

	tw := newTable(w)
	tp := &printer{w: tw}
	mobile := notSet
	if strings.TrimSpace(user.Mobile) != "" {
		mobile = "+91 " + user.Mobile
	}
	tp.printf("Name\t%s\n", OrNotSet(user.Name))
	tp.printf("Mobile\t%s\n", mobile)
	tp.printf("Gender\t%s\n", OrNotSet(string(user.Gender)))
	tp.printf("Date of Birth\t%s\n", FormatDate(user.DOB.Time))
	tp.printf("Address\t%s\n", OrNotSet(user.Address))
	tp.printf("Pincode\t%s\n", OrNotSet(user.Pincode))
	tp.printf("Hobbies\t%s\n", OrNotSet(user.Hobbies))
	tp.printf("About You\t%s\n", OrNotSet(user.AboutYou))
	tp.printf("Member Since\t%s\n", FormatDate(user.CreatedAt.Time))
	if tp.err != nil {
		return tp.err
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return p.err
}

// Pictures renders the carousel's current picture and the thumbnail strip.
func Pictures(w io.Writer, c *Carousel) error {
	p := &printer{w: w}
	current, ok := c.Current()
	if !ok {
		p.printf("No profile pictures yet\n")
		return p.err
	}
	primary := ""
	if current.IsPrimary {
		primary = " (primary)"
	}
	p.printf("Picture %s%s\n", c.Position(), primary)
	p.printf("  id=%d %s\n", current.ID, current.ImagePath)
	if current.FileSize > 0 {
		p.printf("  %s %s\n", OrNotSet(current.ImageName), FileSize(current.FileSize))
	}

	thumbs := make([]string, 0, c.Len())
	for i, pic := range c.Pics() {
		label := fmt.Sprintf("%d", pic.ID)
		if pic.IsPrimary {
			label += "*"
		}
		if i == c.Index() {
			label = "[" + label + "]"
		}
		thumbs = append(thumbs, label)
	}
	p.printf("  %s\n", strings.Join(thumbs, " "))
	return p.err
}

// Messages renders a conversation oldest first.
func Messages(w io.Writer, msgs []api.Message, meID int64, now time.Time) error {
	if len(msgs) == 0 {
		_, err := fmt.Fprintln(w, "No messages yet")
		return err
	}
	tw := newTable(w)
	p := &printer{w: tw}
	for _, m := range msgs {
		who := "them"
		if m.Sender != nil {
			who = OrNotSet(m.Sender.Name)
			if m.Sender.ID == meID {
				who = "You"
			}
		}
		p.printf("%d\t%s\t%s\t%s\n", m.ID, FormatRelative(m.CreatedAt.Time, now), who, messageBody(m))
	}
	if p.err != nil {
		return p.err
	}
	return tw.Flush()
}

func messageBody(m api.Message) string {
	switch m.MessageType {
	case api.MessageImage:
		return strings.TrimSpace("📷 Image " + m.MediaPath)
	case api.MessageVoice:
		return strings.TrimSpace("🎤 Voice message " + m.MediaPath)
	default:
		return m.TextContent
	}
}

func SearchResults(w io.Writer, results []api.SearchResult, now time.Time) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No users found")
		return err
	}
	tw := newTable(w)
	p := &printer{w: tw}
	p.printf("ID\tNAME\tGENDER\tPINCODE\tSTATUS\tLAST ACTIVE\n")
	for _, r := range results {
		p.printf("%d\t%s\t%s\t%s\t%s %s\t%s\n",
			r.ID, OrNotSet(r.Name), OrNotSet(string(r.Gender)), OrNotSet(r.Pincode),
			OnlineDot(r.OnlineStatus), OrNotSet(r.OnlineStatus), FormatRelative(r.LastActiveTime.Time, now))
	}
	if p.err != nil {
		return p.err
	}
	return tw.Flush()
}

func BlockList(w io.Writer, blocks []api.BlockMapping) error {
	if len(blocks) == 0 {
		_, err := fmt.Fprintln(w, "No blocked users")
		return err
	}
	tw := newTable(w)
	p := &printer{w: tw}
	p.printf("ID\tNAME\tBLOCKED ON\n")
	for _, b := range blocks {
		if b.BlockedUser == nil {
			continue
		}
		p.printf("%d\t%s\t%s\n", b.BlockedUser.ID, OrNotSet(b.BlockedUser.Name), FormatDate(b.CreatedAt.Time))
	}
	if p.err != nil {
		return p.err
	}
	return tw.Flush()
}

func Activity(w io.Writer, s api.ActivityStatus, now time.Time) error {
	if s.LastActiveTime.IsZero() {
		_, err := fmt.Fprintln(w, "No activity recorded")
		return err
	}
	_, err := fmt.Fprintf(w, "Last active %s via %s\n", FormatRelative(s.LastActiveTime.Time, now), OrNotSet(s.ActiveSource))
	return err
}
