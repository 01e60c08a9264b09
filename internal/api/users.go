package api

import (
	"context"
	"net/http"
)

func (c *Client) Profile(ctx context.Context) (User, error) {
	var out User
	if _, err := c.call(ctx, request{method: http.MethodGet, path: "/users/profile"}, &out); err != nil {
		return User{}, err
	}
	return out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, update ProfileUpdate) (User, error) {
	req, err := jsonRequest(http.MethodPut, "/users/profile", update)
	if err != nil {
		return User{}, err
	}
	var out User
	if _, err := c.call(ctx, req, &out); err != nil {
		return User{}, err
	}
	return out, nil
}

func (c *Client) UserProfile(ctx context.Context, userID int64) (User, error) {
	var out User
	if _, err := c.call(ctx, request{method: http.MethodGet, path: idPath("/users/%d/profile", userID)}, &out); err != nil {
		return User{}, err
	}
	return out, nil
}

// Communication returns the conversation card for the other user.
func (c *Client) Communication(ctx context.Context, userID int64) (Communication, error) {
	var out Communication
	if _, err := c.call(ctx, request{method: http.MethodGet, path: idPath("/users/%d/communication", userID)}, &out); err != nil {
		return Communication{}, err
	}
	if out.UserID == 0 {
		out.UserID = userID
	}
	return out, nil
}

func (c *Client) SearchUsers(ctx context.Context, query SearchQuery) ([]SearchResult, error) {
	req, err := jsonRequest(http.MethodPost, "/users/search", query)
	if err != nil {
		return nil, err
	}
	var out []SearchResult
	if _, err := c.call(ctx, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}
