package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) RetentionConfig(ctx context.Context) (RetentionConfig, error) {
	var out RetentionConfig
	if _, err := c.call(ctx, request{method: http.MethodGet, path: "/message-retention/config"}, &out); err != nil {
		return RetentionConfig{}, err
	}
	return out, nil
}

// UpdateRetentionConfig sends the settings as query parameters; the server
// accepts a count between 1 and 100.
func (c *Client) UpdateRetentionConfig(ctx context.Context, cfg RetentionConfig) (string, error) {
	if cfg.RetentionCount < 1 || cfg.RetentionCount > 100 {
		return "", errors.New("retention count must be between 1 and 100")
	}
	return c.call(ctx, request{
		method: http.MethodPut,
		path:   "/message-retention/config",
		query: url.Values{
			"retentionCount": []string{strconv.Itoa(cfg.RetentionCount)},
			"enabled":        []string{strconv.FormatBool(cfg.Enabled)},
		},
	}, nil)
}

func (c *Client) RetentionStats(ctx context.Context, otherUserID int64) (map[string]any, error) {
	var out map[string]any
	if _, err := c.call(ctx, request{method: http.MethodGet, path: idPath("/message-retention/stats/%d", otherUserID)}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CleanupConversation(ctx context.Context, otherUserID int64) (string, error) {
	msg, err := c.call(ctx, request{method: http.MethodPost, path: idPath("/message-retention/cleanup/%d", otherUserID)}, nil)
	if err != nil {
		return "", fmt.Errorf("cleanup conversation %d: %w", otherUserID, err)
	}
	return msg, nil
}
