package api

import (
	"context"
	"net/http"
)

func (c *Client) BlockUser(ctx context.Context, userID int64) error {
	_, err := c.call(ctx, request{method: http.MethodPost, path: idPath("/block/%d", userID)}, nil)
	return err
}

func (c *Client) UnblockUser(ctx context.Context, userID int64) error {
	_, err := c.call(ctx, request{method: http.MethodDelete, path: idPath("/block/%d", userID)}, nil)
	return err
}

func (c *Client) BlockedUsers(ctx context.Context) ([]BlockMapping, error) {
	var out []BlockMapping
	if _, err := c.call(ctx, request{method: http.MethodGet, path: "/block/list"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) BlockStatus(ctx context.Context, userID int64) (bool, error) {
	var blocked bool
	if _, err := c.call(ctx, request{method: http.MethodGet, path: idPath("/block/check/%d", userID)}, &blocked); err != nil {
		return false, err
	}
	return blocked, nil
}
