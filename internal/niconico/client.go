package niconico

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/sh4869221b/niconeon/internal/models"
)

/*
LEARNING: TWO-STEP COMMENT FETCH

Comments are not served from the watch page directly:

  1. GET  {base}/watch/{video_id}?responseType=json
       → data.response.comment.nvComment {server, threadKey, params}
  2. POST {nvComment.server}/v1/threads  {threadKey, params, additionals}
       → data.threads[].comments[] {id, vposMs, body, userId}

The thread key is short-lived, so both calls happen on every open. There are no
retries: a failure goes back to the caller, which falls back to the cache.
*/

const (
	DefaultBaseURL = "https://www.nicovideo.jp"
	userAgent      = "Mozilla/5.0 (Niconeon)"

	// AnonymousUserID stands in for comments that carry no user id
	AnonymousUserID = "anonymous"
)

// Client fetches comment threads for a video
type Client struct {
	BaseURL string
	Cookie  string
	client  *http.Client
}

// NewClient creates a client. An empty baseURL uses the public site.
func NewClient(baseURL, cookie string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		Cookie:  cookie,
		client:  &http.Client{Timeout: timeout},
	}
}

type watchResponse struct {
	Data struct {
		Response struct {
			Comment struct {
				NvComment *nvComment `json:"nvComment"`
			} `json:"comment"`
		} `json:"response"`
	} `json:"data"`
}

type nvComment struct {
	Server    string          `json:"server"`
	ThreadKey string          `json:"threadKey"`
	Params    json.RawMessage `json:"params"`
}

type threadsRequest struct {
	ThreadKey   string          `json:"threadKey"`
	Params      json.RawMessage `json:"params"`
	Additionals struct{}        `json:"additionals"`
}

type threadsResponse struct {
	Meta struct {
		Status int `json:"status"`
	} `json:"meta"`
	Data struct {
		Threads []struct {
			Comments []threadComment `json:"comments"`
		} `json:"threads"`
	} `json:"data"`
}

type threadComment struct {
	ID     string  `json:"id"`
	VposMs int64   `json:"vposMs"`
	Body   string  `json:"body"`
	UserID *string `json:"userId"`
}

// FetchComments returns every comment of every thread, sorted by at_ms
func (c *Client) FetchComments(ctx context.Context, videoID string) ([]models.CommentEvent, error) {
	nv, err := c.fetchWatch(ctx, videoID)
	if err != nil {
		return nil, err
	}

	threads, err := c.fetchThreads(ctx, nv)
	if err != nil {
		return nil, err
	}

	var comments []models.CommentEvent
	for _, thread := range threads.Data.Threads {
		for _, tc := range thread.Comments {
			userID := AnonymousUserID
			if tc.UserID != nil && *tc.UserID != "" {
				userID = *tc.UserID
			}
			comments = append(comments, models.CommentEvent{
				CommentID: tc.ID,
				AtMs:      tc.VposMs,
				UserID:    userID,
				Text:      tc.Body,
			})
		}
	}

	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].AtMs < comments[j].AtMs
	})
	return comments, nil
}

func (c *Client) fetchWatch(ctx context.Context, videoID string) (*nvComment, error) {
	url := fmt.Sprintf("%s/watch/%s?responseType=json", c.BaseURL, videoID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	if c.Cookie != "" {
		httpReq.Header.Set("Cookie", c.Cookie)
	}

	var watch watchResponse
	if err := c.doJSON(httpReq, &watch); err != nil {
		return nil, fmt.Errorf("failed to fetch watch data: %w", err)
	}

	nv := watch.Data.Response.Comment.NvComment
	if nv == nil {
		return nil, fmt.Errorf("nvComment section not found for %s", videoID)
	}
	return nv, nil
}

func (c *Client) fetchThreads(ctx context.Context, nv *nvComment) (*threadsResponse, error) {
	reqBody, err := json.Marshal(threadsRequest{ThreadKey: nv.ThreadKey, Params: nv.Params})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, nv.Server+"/v1/threads", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Origin", c.BaseURL)
	httpReq.Header.Set("Referer", c.BaseURL+"/")
	httpReq.Header.Set("X-Frontend-Id", "6")
	httpReq.Header.Set("X-Frontend-Version", "0")
	httpReq.Header.Set("X-Niconico-Language", "ja-jp")
	httpReq.Header.Set("User-Agent", userAgent)
	if c.Cookie != "" {
		httpReq.Header.Set("Cookie", c.Cookie)
	}

	var threads threadsResponse
	if err := c.doJSON(httpReq, &threads); err != nil {
		return nil, fmt.Errorf("failed to fetch comment threads: %w", err)
	}
	if threads.Meta.Status != http.StatusOK {
		return nil, fmt.Errorf("comment threads meta status %d", threads.Meta.Status)
	}
	return &threads, nil
}

func (c *Client) doJSON(httpReq *http.Request, out interface{}) error {
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
