package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// CaptureActivity reports presence for the current user from source
// (APP or WEBSITE).
func (c *Client) CaptureActivity(ctx context.Context, source string) error {
	source = strings.TrimSpace(source)
	if source == "" {
		return errors.New("activity source is required")
	}
	_, err := c.call(ctx, request{
		method: http.MethodPost,
		path:   "/activity/capture",
		query:  url.Values{"source": []string{source}},
	}, nil)
	return err
}

func (c *Client) ActivityStatus(ctx context.Context) (ActivityStatus, error) {
	var out ActivityStatus
	if _, err := c.call(ctx, request{method: http.MethodGet, path: "/activity/status"}, &out); err != nil {
		return ActivityStatus{}, err
	}
	return out, nil
}
