package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Client) ProfilePics(ctx context.Context, userID int64) ([]ProfilePic, error) {
	var out []ProfilePic
	if _, err := c.call(ctx, request{method: http.MethodGet, path: idPath("/profile-pics/%d", userID)}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Upload describes one file for a multipart request.
type Upload struct {
	FileName    string
	ContentType string
	Body        io.Reader
}

func (c *Client) UploadProfilePic(ctx context.Context, file Upload, isPrimary bool) (ProfilePic, error) {
	req, err := multipartRequest(http.MethodPost, "/profile-pics/upload", "file", file, map[string]string{
		"isPrimary": strconv.FormatBool(isPrimary),
	})
	if err != nil {
		return ProfilePic{}, err
	}
	var out ProfilePic
	if _, err := c.call(ctx, req, &out); err != nil {
		return ProfilePic{}, err
	}
	return out, nil
}

func (c *Client) SetPrimaryPic(ctx context.Context, picID int64) (ProfilePic, error) {
	var out ProfilePic
	if _, err := c.call(ctx, request{method: http.MethodPut, path: idPath("/profile-pics/%d/primary", picID)}, &out); err != nil {
		return ProfilePic{}, err
	}
	return out, nil
}

func (c *Client) DeleteProfilePic(ctx context.Context, picID int64) error {
	_, err := c.call(ctx, request{method: http.MethodDelete, path: idPath("/profile-pics/%d", picID)}, nil)
	return err
}

// ReorderPics sets the display order to the order of picIDs.
func (c *Client) ReorderPics(ctx context.Context, picIDs []int64) error {
	if len(picIDs) == 0 {
		return errors.New("at least one picture id is required")
	}
	req, err := jsonRequest(http.MethodPut, "/profile-pics/reorder", picIDs)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, req, nil)
	return err
}

// DownloadPic streams the image at imagePath into w. Relative paths resolve
// against the origin of the API base URL.
func (c *Client) DownloadPic(ctx context.Context, imagePath string, w io.Writer) (int64, error) {
	target, err := c.resolveAsset(imagePath)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, fmt.Errorf("build download request: %w", err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", imagePath, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return 0, &Error{StatusCode: resp.StatusCode, Message: resp.Status}
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("write %s: %w", imagePath, err)
	}
	return n, nil
}

func (c *Client) resolveAsset(imagePath string) (string, error) {
	imagePath = strings.TrimSpace(imagePath)
	if imagePath == "" {
		return "", errors.New("image path is required")
	}
	ref, err := url.Parse(imagePath)
	if err != nil {
		return "", fmt.Errorf("parse image path: %w", err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	origin := &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/"}
	return origin.ResolveReference(ref).String(), nil
}

func multipartRequest(method, path, fileField string, file Upload, fields map[string]string) (request, error) {
	if file.Body == nil {
		return request{}, errors.New("upload body is required")
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			return request{}, fmt.Errorf("write field %s: %w", key, err)
		}
	}

	name := filepath.Base(strings.TrimSpace(file.FileName))
	if name == "" || name == "." {
		name = "upload"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fileField, name))
	contentType := strings.TrimSpace(file.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return request{}, fmt.Errorf("create %s part: %w", fileField, err)
	}
	if _, err := io.Copy(part, file.Body); err != nil {
		return request{}, fmt.Errorf("copy %s: %w", fileField, err)
	}
	if err := mw.Close(); err != nil {
		return request{}, fmt.Errorf("close multipart body: %w", err)
	}
	return request{
		method:      method,
		path:        path,
		body:        &buf,
		contentType: mw.FormDataContentType(),
	}, nil
}
