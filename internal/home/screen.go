// Package home is the signed-in landing screen: the conversation list, kept
// on screen while the heartbeat reports presence.
package home

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meetthepeople/mtp/internal/api"
	"github.com/meetthepeople/mtp/internal/heartbeat"
	"github.com/meetthepeople/mtp/internal/session"
	"github.com/meetthepeople/mtp/internal/view"
)

const maxConcurrentFetches = 4

var ErrLoadConversations = errors.New("failed to load conversations")

// Client is the part of api.Client the screen needs.
type Client interface {
	Communication(ctx context.Context, userID int64) (api.Communication, error)
}

// Presence is the heartbeat the screen holds while mounted.
type Presence interface {
	Start(ctx context.Context) (*heartbeat.Handle, error)
	Wait(ctx context.Context) error
}

type Options struct {
	// Peers are fetched in addition to the peers stored in the session.
	Peers []int64
	// Watch keeps the screen mounted until ctx is done.
	Watch bool
	// Refresh re-renders the list on this interval while watching.
	Refresh time.Duration
	// DrainTimeout bounds the wait for in-flight reports on unmount.
	DrainTimeout time.Duration
}

type Screen struct {
	client   Client
	session  *session.Session
	presence Presence
	out      io.Writer
	opts     Options
	now      func() time.Time
}

func NewScreen(client Client, s *session.Session, presence Presence, out io.Writer, opts Options) *Screen {
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = 5 * time.Second
	}
	return &Screen{
		client:   client,
		session:  s,
		presence: presence,
		out:      out,
		opts:     opts,
		now:      time.Now,
	}
}

func (s *Screen) peers(ctx context.Context) ([]int64, error) {
	stored, err := s.session.Peers(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{}, len(stored)+len(s.opts.Peers))
	out := make([]int64, 0, len(stored)+len(s.opts.Peers))
	for _, id := range append(stored, s.opts.Peers...) {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

// Conversations loads one card per known peer, most recent message first.
// Peers that fail to load are skipped; the call fails only when every peer
// fails.
func (s *Screen) Conversations(ctx context.Context) ([]api.Communication, error) {
	peers, err := s.peers(ctx)
	if err != nil {
		return nil, err
	}
	if len(peers) == 0 {
		return nil, nil
	}

	var (
		mu       sync.Mutex
		list     = make([]api.Communication, 0, len(peers))
		failures int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for _, id := range peers {
		g.Go(func() error {
			c, err := s.client.Communication(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				log.Printf("event=conversation_load_failed peer=%d err=%v", id, err)
				return nil
			}
			if c.UserID == 0 {
				c.UserID = id
			}
			list = append(list, c)
			return nil
		})
	}
	_ = g.Wait()

	if failures == len(peers) {
		return nil, ErrLoadConversations
	}
	sortConversations(list)
	log.Printf("event=conversations_loaded count=%d failed=%d", len(list), failures)
	return list, nil
}

// sortConversations orders by last message time, newest first, with
// conversations that have no messages last.
func sortConversations(list []api.Communication) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].LastMessageTime.Time, list[j].LastMessageTime.Time
		if !a.Equal(b) {
			return a.After(b)
		}
		return strings.ToLower(list[i].UserName) < strings.ToLower(list[j].UserName)
	})
}

func (s *Screen) render(ctx context.Context) error {
	user, _, err := s.session.User(ctx)
	if err != nil {
		return err
	}
	name := user.Name
	if strings.TrimSpace(name) == "" {
		name = "User"
	}
	if _, err := fmt.Fprintf(s.out, "Meet The People\nWelcome back, %s\n\n", name); err != nil {
		return err
	}

	list, err := s.Conversations(ctx)
	if err != nil {
		if _, werr := fmt.Fprintln(s.out, err.Error()); werr != nil {
			return werr
		}
		return err
	}
	return view.ConversationCards(s.out, list, s.now())
}

// Run mounts the screen: it starts the heartbeat, renders the list and, when
// watching, re-renders until ctx is done. The heartbeat is released on return.
func (s *Screen) Run(ctx context.Context) error {
	handle, err := s.presence.Start(ctx)
	if err != nil {
		return fmt.Errorf("start heartbeat: %w", err)
	}
	log.Printf("event=home_mounted heartbeat_owner=%t", handle.Owner())
	defer func() {
		handle.Stop()
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.DrainTimeout)
		defer cancel()
		if err := s.presence.Wait(drainCtx); err != nil {
			log.Printf("event=heartbeat_drain_failed err=%v", err)
		}
		log.Printf("event=home_unmounted")
	}()

	renderErr := s.render(ctx)
	if !s.opts.Watch {
		return renderErr
	}
	if renderErr != nil && !errors.Is(renderErr, ErrLoadConversations) {
		return renderErr
	}

	if s.opts.Refresh <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(s.opts.Refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.render(ctx); err != nil && !errors.Is(err, ErrLoadConversations) {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}
