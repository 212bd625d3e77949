package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"docnexus/internal/domain"
)

type chatRequest struct {
	Query    string `json:"query"`
	ThreadID string `json:"thread_id"`
}

// ChatStream starts a chat turn. The returned body carries the line
// protocol and must be closed by the caller. No request deadline applies;
// cancel ctx to abort.
func (c *Client) ChatStream(ctx context.Context, query, threadID string) (io.ReadCloser, error) {
	body, err := json.Marshal(chatRequest{Query: query, ThreadID: threadID})
	if err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, "chat.stream", request{
		method:      http.MethodPost,
		path:        "chat/",
		body:        bytes.NewReader(body),
		contentType: "application/json",
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// History lists the user's threads, newest first.
func (c *Client) History(ctx context.Context) ([]domain.ThreadSummary, error) {
	var out []domain.ThreadSummary
	if err := c.getJSON(ctx, "chat.history", "chat/history", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Thread returns the raw message history of one thread.
func (c *Client) Thread(ctx context.Context, threadID string) ([]domain.RawMessage, error) {
	var out struct {
		Messages []domain.RawMessage `json:"messages"`
	}
	if err := c.getJSON(ctx, "chat.thread", "chat/"+url.PathEscape(threadID), &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}
