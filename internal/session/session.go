package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/meetthepeople/mtp/internal/api"
)

const (
	keyToken         = "token"
	keyUser          = "user"
	keyPendingMobile = "mobileNumber"
	keyLastReport    = "lastActivityCapture"
	keyPeers         = "peers"
	keyOTPSentAt     = "otpSentAt"
)

// Session exposes the typed values the client keeps in a Store: the login
// token and user, the mobile number handed from login to OTP verification,
// the heartbeat's last-send marker and the known conversation peers.
type Session struct {
	store Store
}

func New(store Store) *Session {
	return &Session{store: store}
}

func (s *Session) ID() string {
	return s.store.ID()
}

// Token implements api.TokenSource.
func (s *Session) Token(ctx context.Context) (string, error) {
	v, _, err := s.store.Get(ctx, keyToken)
	return v, err
}

func (s *Session) Authenticated(ctx context.Context) (bool, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(token) != "", nil
}

func (s *Session) SetLogin(ctx context.Context, token string, user api.User) error {
	if err := s.store.Set(ctx, keyToken, token); err != nil {
		return err
	}
	return s.SetUser(ctx, user)
}

func (s *Session) User(ctx context.Context) (api.User, bool, error) {
	raw, ok, err := s.store.Get(ctx, keyUser)
	if err != nil || !ok {
		return api.User{}, false, err
	}
	var user api.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return api.User{}, false, fmt.Errorf("decode session user: %w", err)
	}
	return user, true, nil
}

func (s *Session) SetUser(ctx context.Context, user api.User) error {
	body, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}
	return s.store.Set(ctx, keyUser, string(body))
}

// ClearCredentials removes the token and user, leaving the rest of the session.
func (s *Session) ClearCredentials(ctx context.Context) error {
	if err := s.store.Delete(ctx, keyToken); err != nil {
		return err
	}
	return s.store.Delete(ctx, keyUser)
}

// HandleUnauthorized is the api.Config.OnUnauthorized hook.
func (s *Session) HandleUnauthorized(ctx context.Context) {
	if err := s.ClearCredentials(ctx); err != nil {
		log.Printf("event=session_clear_failed session=%s err=%v", s.ID(), err)
		return
	}
	log.Printf("event=session_credentials_cleared session=%s reason=unauthorized", s.ID())
}

// End drops every value of the session.
func (s *Session) End(ctx context.Context) error {
	return s.store.End(ctx)
}

func (s *Session) PendingMobile(ctx context.Context) (string, bool, error) {
	v, ok, err := s.store.Get(ctx, keyPendingMobile)
	if err != nil || !ok || strings.TrimSpace(v) == "" {
		return "", false, err
	}
	return v, true, nil
}

func (s *Session) SetPendingMobile(ctx context.Context, mobile string) error {
	return s.store.Set(ctx, keyPendingMobile, mobile)
}

func (s *Session) ClearPendingMobile(ctx context.Context) error {
	if err := s.store.Delete(ctx, keyOTPSentAt); err != nil {
		return err
	}
	return s.store.Delete(ctx, keyPendingMobile)
}

// OTPSentAt returns when an OTP was last requested for the pending mobile.
func (s *Session) OTPSentAt(ctx context.Context) (time.Time, bool, error) {
	return s.timestamp(ctx, keyOTPSentAt)
}

func (s *Session) SetOTPSentAt(ctx context.Context, at time.Time) error {
	return s.store.Set(ctx, keyOTPSentAt, strconv.FormatInt(at.UnixMilli(), 10))
}

// LastReport returns the heartbeat's last-send marker.
func (s *Session) LastReport(ctx context.Context) (time.Time, bool, error) {
	return s.timestamp(ctx, keyLastReport)
}

func (s *Session) SetLastReport(ctx context.Context, at time.Time) error {
	return s.store.Set(ctx, keyLastReport, strconv.FormatInt(at.UnixMilli(), 10))
}

func (s *Session) timestamp(ctx context.Context, key string) (time.Time, bool, error) {
	raw, ok, err := s.store.Get(ctx, key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse %s %q: %w", key, raw, err)
	}
	return time.UnixMilli(ms), true, nil
}

// Peers returns the user ids the current user has conversations with, in
// ascending order.
func (s *Session) Peers(ctx context.Context) ([]int64, error) {
	raw, ok, err := s.store.Get(ctx, keyPeers)
	if err != nil || !ok {
		return nil, err
	}
	var peers []int64
	if err := json.Unmarshal([]byte(raw), &peers); err != nil {
		return nil, fmt.Errorf("decode session peers: %w", err)
	}
	return peers, nil
}

func (s *Session) AddPeers(ctx context.Context, ids ...int64) error {
	current, err := s.Peers(ctx)
	if err != nil {
		return err
	}
	seen := make(map[int64]struct{}, len(current)+len(ids))
	merged := make([]int64, 0, len(current)+len(ids))
	for _, id := range append(current, ids...) {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i] < merged[j] })
	body, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode session peers: %w", err)
	}
	return s.store.Set(ctx, keyPeers, string(body))
}

func (s *Session) RemovePeer(ctx context.Context, id int64) error {
	current, err := s.Peers(ctx)
	if err != nil {
		return err
	}
	kept := current[:0]
	for _, p := range current {
		if p != id {
			kept = append(kept, p)
		}
	}
	body, err := json.Marshal(kept)
	if err != nil {
		return fmt.Errorf("encode session peers: %w", err)
	}
	return s.store.Set(ctx, keyPeers, string(body))
}
