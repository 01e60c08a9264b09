package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

func (c *Client) SendMessage(ctx context.Context, input MessageInput) (Message, error) {
	if input.ReceiverID <= 0 {
		return Message{}, errors.New("receiver id is required")
	}
	if input.MessageType == "" {
		input.MessageType = MessageText
	}
	if input.MessageType == MessageText && strings.TrimSpace(input.TextContent) == "" {
		return Message{}, errors.New("text content is required")
	}
	req, err := jsonRequest(http.MethodPost, "/messages/send", input)
	if err != nil {
		return Message{}, err
	}
	var out Message
	if _, err := c.call(ctx, req, &out); err != nil {
		return Message{}, err
	}
	return out, nil
}

func (c *Client) SendMediaMessage(ctx context.Context, receiverID int64, messageType MessageType, text string, media Upload) (Message, error) {
	if receiverID <= 0 {
		return Message{}, errors.New("receiver id is required")
	}
	if messageType != MessageImage && messageType != MessageVoice {
		return Message{}, errors.New("media message type must be IMAGE or VOICE")
	}
	fields := map[string]string{
		"receiverId":  strconv.FormatInt(receiverID, 10),
		"messageType": string(messageType),
	}
	if text = strings.TrimSpace(text); text != "" {
		fields["textContent"] = text
	}
	req, err := multipartRequest(http.MethodPost, "/messages/send-media", "mediaFile", media, fields)
	if err != nil {
		return Message{}, err
	}
	var out Message
	if _, err := c.call(ctx, req, &out); err != nil {
		return Message{}, err
	}
	return out, nil
}

func (c *Client) Conversation(ctx context.Context, otherUserID int64) ([]Message, error) {
	var out []Message
	if _, err := c.call(ctx, request{method: http.MethodGet, path: idPath("/messages/conversation/%d", otherUserID)}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteMessage(ctx context.Context, messageID int64) error {
	_, err := c.call(ctx, request{method: http.MethodDelete, path: idPath("/messages/%d", messageID)}, nil)
	return err
}
