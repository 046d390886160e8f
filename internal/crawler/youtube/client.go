// Package youtube implements the API-driven platform client over the
// YouTube Data API v3: channel resolution, paginated video listing inside
// the date window, and paginated top-level comment threads per video.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/commentscope/commentscope/internal/crawler"
	"github.com/commentscope/commentscope/internal/window"
	"github.com/commentscope/commentscope/pkg/comment"
	"github.com/commentscope/commentscope/pkg/logging"
	"github.com/commentscope/commentscope/pkg/ratelimit"
)

const (
	videoPageSize  = 50
	threadPageSize = 100
)

// errCommentsDisabled marks a video with administratively disabled comments.
// Recoverable at the per-video level.
var errCommentsDisabled = errors.New("comments disabled")

// Config configures the API client
type Config struct {
	APIKey          string        `json:"-"`
	BaseURL         string        `json:"base_url"`
	RequestTimeout  time.Duration `json:"request_timeout"`
	RetryAttempts   int           `json:"retry_attempts"`
	RetryDelay      time.Duration `json:"retry_delay"`
	MaxVideoWorkers int           `json:"max_video_workers"`
}

// DefaultConfig returns default client configuration (API key still
// required).
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "https://www.googleapis.com/youtube/v3",
		RequestTimeout:  30 * time.Second,
		RetryAttempts:   3,
		RetryDelay:      2 * time.Second,
		MaxVideoWorkers: 4,
	}
}

// Client is the API-driven platform client.
type Client struct {
	config  *Config
	http    *http.Client
	limiter *ratelimit.TokenBucket
}

// NewClient creates a client with the supplied resolved API key.
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("youtube api key is required")
	}
	return &Client{
		config:  config,
		http:    &http.Client{Timeout: config.RequestTimeout},
		limiter: ratelimit.NewTokenBucket(10, 200*time.Millisecond),
	}, nil
}

// Platform implements crawler.Client.
func (c *Client) Platform() comment.Platform {
	return comment.PlatformYouTube
}

// Crawl resolves the account to a channel, lists its in-window videos and
// fans out per-video comment fetching, bounded by the worker limit. Each
// video's pages are merged before being offered to the collector so no
// partial-video results interleave.
func (c *Client) Crawl(ctx context.Context, account string, w window.Window, sink *crawler.Collector) error {
	logger := logging.GetCrawlLogger(string(comment.PlatformYouTube), account)

	channelID, err := c.resolveChannel(ctx, account)
	if err != nil {
		return err
	}
	logger.Info().Str("channel_id", channelID).Msg("Resolved channel")

	videos, err := c.listVideos(ctx, channelID, w)
	if err != nil {
		// Partial video lists are still worth crawling.
		if len(videos) == 0 {
			return err
		}
		logger.Warn().Err(err).Int("videos", len(videos)).Msg("Video listing ended early, crawling partial list")
	}
	logger.Info().Int("videos", len(videos)).Msg("Listed in-window videos")

	var (
		quotaOnce sync.Once
		quotaErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.MaxVideoWorkers)

	for _, v := range videos {
		g.Go(func() error {
			records, err := c.videoComments(gctx, v)
			switch {
			case errors.Is(err, errCommentsDisabled):
				logger.Info().Str("video_id", v.ID).Msg("Comments disabled, skipping video")
				return nil
			case errors.Is(err, crawler.ErrQuotaExceeded):
				quotaOnce.Do(func() { quotaErr = err })
				return err // cancels the group
			case err != nil:
				logger.Warn().Err(err).Str("video_id", v.ID).Msg("Comment fetch failed, skipping video")
				return nil
			}
			sink.OfferBatch(records)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if quotaErr != nil {
			return quotaErr
		}
		return err
	}
	return nil
}

// resolveChannel maps the account name to a channel ID, first match wins.
func (c *Client) resolveChannel(ctx context.Context, account string) (string, error) {
	params := url.Values{
		"part":       {"snippet"},
		"q":          {account},
		"type":       {"channel"},
		"maxResults": {"1"},
	}

	var resp searchResponse
	if err := c.get(ctx, "search", params, &resp); err != nil {
		return "", fmt.Errorf("channel lookup failed: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].ID.ChannelID == "" {
		return "", fmt.Errorf("%w: no channel matches %q", crawler.ErrAccountNotFound, account)
	}
	return resp.Items[0].ID.ChannelID, nil
}

// listVideos pages through the channel's uploads narrowed server-side to the
// window's UTC bounds. Videos collected before a mid-pagination failure are
// returned alongside the error.
func (c *Client) listVideos(ctx context.Context, channelID string, w window.Window) ([]video, error) {
	after, before := w.UTCBounds()
	var videos []video
	pageToken := ""

	for {
		params := url.Values{
			"part":            {"id,snippet"},
			"channelId":       {channelID},
			"maxResults":      {fmt.Sprintf("%d", videoPageSize)},
			"order":           {"date"},
			"type":            {"video"},
			"publishedAfter":  {after},
			"publishedBefore": {before},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var resp searchResponse
		if err := c.get(ctx, "search", params, &resp); err != nil {
			return videos, fmt.Errorf("video listing failed: %w", err)
		}

		for _, item := range resp.Items {
			if item.ID.VideoID == "" {
				continue
			}
			publishedAt, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
			if err != nil {
				// No valid date means no window admission.
				continue
			}
			// The server-side filter is an optimization; the admission
			// check stays authoritative.
			if !w.Contains(publishedAt) {
				continue
			}
			videos = append(videos, video{
				ID:          item.ID.VideoID,
				Title:       item.Snippet.Title,
				PublishedAt: publishedAt,
			})
		}

		if resp.NextPageToken == "" {
			sortVideos(videos)
			return videos, nil
		}
		pageToken = resp.NextPageToken
	}
}

// videoComments fetches every top-level comment thread page of one video and
// returns the merged, ordered records.
func (c *Client) videoComments(ctx context.Context, v video) ([]comment.Record, error) {
	link := fmt.Sprintf("https://www.youtube.com/watch?v=%s", v.ID)
	var records []comment.Record
	pageToken := ""

	for {
		params := url.Values{
			"part":       {"snippet"},
			"videoId":    {v.ID},
			"textFormat": {"plainText"},
			"maxResults": {fmt.Sprintf("%d", threadPageSize)},
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var resp threadsResponse
		if err := c.get(ctx, "commentThreads", params, &resp); err != nil {
			if errors.Is(err, errCommentsDisabled) || errors.Is(err, crawler.ErrQuotaExceeded) {
				return nil, err
			}
			// Retries exhausted: end this pagination chain with what we
			// have rather than failing the video.
			return records, nil
		}

		for _, item := range resp.Items {
			snippet := item.Snippet.TopLevelComment.Snippet
			publishedAt, err := time.Parse(time.RFC3339, snippet.PublishedAt)
			if err != nil {
				continue
			}
			records = append(records, comment.Record{
				PublishedAt: publishedAt.UTC(),
				Text:        snippet.TextDisplay,
				SourceLink:  link,
			})
		}

		if resp.NextPageToken == "" {
			return records, nil
		}
		pageToken = resp.NextPageToken
	}
}

// get performs one API call with quota pacing and bounded retry on
// transient failures.
func (c *Client) get(ctx context.Context, resource string, params url.Values, out any) error {
	params.Set("key", c.config.APIKey)
	endpoint := fmt.Sprintf("%s/%s?%s", c.config.BaseURL, resource, params.Encode())

	var lastErr error
	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * c.config.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		err := c.doOnce(ctx, endpoint, out)
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("retries exhausted: %w", lastErr)
}

func (c *Client) doOnce(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &transientError{err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return &transientError{err}
	}

	if resp.StatusCode != http.StatusOK {
		return classifyAPIError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("malformed api response: %w", err)
	}
	return nil
}

// transientError marks failures worth retrying.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// classifyAPIError maps the Data API error envelope onto the crawl error
// taxonomy.
func classifyAPIError(status int, body []byte) error {
	var envelope errorResponse
	reason := ""
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Error.Errors) > 0 {
		reason = envelope.Error.Errors[0].Reason
	}

	switch reason {
	case "commentsDisabled":
		return errCommentsDisabled
	case "quotaExceeded", "dailyLimitExceeded":
		return fmt.Errorf("%w: %s", crawler.ErrQuotaExceeded, envelope.Error.Message)
	case "rateLimitExceeded":
		return &transientError{fmt.Errorf("rate limited (HTTP %d)", status)}
	}

	if status == http.StatusForbidden {
		// 403 without a parseable reason on commentThreads is in practice
		// disabled comments.
		return errCommentsDisabled
	}
	if status >= 500 || status == http.StatusTooManyRequests {
		return &transientError{fmt.Errorf("HTTP %d from api", status)}
	}
	return fmt.Errorf("HTTP %d from api: %s", status, envelope.Error.Message)
}

// sortVideos orders videos most-recent-first for deterministic output.
func sortVideos(videos []video) {
	sort.Slice(videos, func(i, j int) bool {
		return videos[i].PublishedAt.After(videos[j].PublishedAt)
	})
}
