// Package instagram implements the UI-driven platform client: an explicit
// state machine over a Session that abstracts the automated browsing of an
// account's post feed, newest post first.
package instagram

import (
	"context"
	"fmt"
	"time"

	"github.com/commentscope/commentscope/internal/crawler"
	"github.com/commentscope/commentscope/internal/window"
	"github.com/commentscope/commentscope/pkg/comment"
	"github.com/commentscope/commentscope/pkg/logging"
	"github.com/commentscope/commentscope/pkg/ratelimit"
)

// state is one phase of the traversal machine.
type state int

const (
	stateLocatingAccount state = iota
	stateAtPost
	stateExpandingComments
	stateExtractingComments
	stateAdvancing
	stateDone
)

func (s state) String() string {
	switch s {
	case stateLocatingAccount:
		return "locating_account"
	case stateAtPost:
		return "at_post"
	case stateExpandingComments:
		return "expanding_comments"
	case stateExtractingComments:
		return "extracting_comments"
	case stateAdvancing:
		return "advancing"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Config configures the UI client.
type Config struct {
	Username        string        `json:"username"`
	Password        string        `json:"-"`
	BaseURL         string        `json:"base_url"`
	RequestTimeout  time.Duration `json:"request_timeout"`
	PolitenessDelay time.Duration `json:"politeness_delay"`
	// MaxExpandSteps bounds the load-more loop per post.
	MaxExpandSteps int `json:"max_expand_steps"`
}

// DefaultConfig returns default client configuration (credentials still
// required).
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "https://www.instagram.com",
		RequestTimeout:  30 * time.Second,
		PolitenessDelay: 2 * time.Second,
		MaxExpandSteps:  50,
	}
}

// SessionFactory opens a fresh browsing session for one crawl.
type SessionFactory func(ctx context.Context) (Session, error)

// Client is the UI-driven platform client.
type Client struct {
	config   *Config
	rules    *crawler.RuleSet
	sessions SessionFactory
	pacer    *ratelimit.Pacer
}

// NewClient creates a client. The rule set screens post bodies before their
// comments are extracted; a nil factory gets the production HTTP session.
func NewClient(config *Config, rules *crawler.RuleSet, factory SessionFactory) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Username == "" || config.Password == "" {
		return nil, fmt.Errorf("instagram credentials are required")
	}
	if factory == nil {
		factory = func(ctx context.Context) (Session, error) {
			return newHTMLSession(config)
		}
	}
	return &Client{
		config:   config,
		rules:    rules,
		sessions: factory,
		pacer:    ratelimit.NewPacer(config.PolitenessDelay),
	}, nil
}

// Platform implements crawler.Client.
func (c *Client) Platform() comment.Platform {
	return comment.PlatformInstagram
}

// Crawl walks the account's feed newest-first, offering each admitted post's
// comments to the collector. The feed is reverse-chronological, so the first
// pre-window post terminates the walk. A missing next control is normal
// termination; a navigation failure ends the crawl with everything already
// collected still in the sink.
func (c *Client) Crawl(ctx context.Context, account string, w window.Window, sink *crawler.Collector) error {
	logger := logging.GetCrawlLogger(string(comment.PlatformInstagram), account)

	sess, err := c.sessions(ctx)
	if err != nil {
		return fmt.Errorf("opening session: %w", err)
	}
	defer sess.Close()

	var (
		st       = stateLocatingAccount
		postDate time.Time
		postURL  string
		expands  int
	)

	for st != stateDone {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch st {
		case stateLocatingAccount:
			if err := sess.Login(ctx); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			if err := sess.OpenProfile(ctx, account); err != nil {
				return err
			}
			logger.Info().Msg("Opened most recent post")
			st = stateAtPost

		case stateAtPost:
			expands = 0
			date, err := sess.PostDate()
			if err != nil {
				logger.Warn().Err(err).Msg("Unreadable post date, skipping post")
				st = stateAdvancing
				continue
			}
			postDate = date

			switch w.Evaluate(date) {
			case window.Skip:
				logger.Debug().Time("post_date", date).Msg("Post after window, advancing")
				st = stateAdvancing
			case window.Stop:
				logger.Info().Time("post_date", date).Msg("Post before window, traversal complete")
				st = stateDone
			case window.Admit:
				body, err := sess.PostBody()
				if err != nil {
					logger.Warn().Err(err).Msg("Unreadable post body, skipping post")
					st = stateAdvancing
					continue
				}
				if c.rules.Match(body) {
					logger.Debug().Msg("Post body matches exclusion rule, advancing")
					st = stateAdvancing
					continue
				}
				url, err := sess.PostURL()
				if err != nil {
					logger.Warn().Err(err).Msg("Unreadable post link, skipping post")
					st = stateAdvancing
					continue
				}
				postURL = url
				st = stateExpandingComments
			}

		case stateExpandingComments:
			if expands >= c.config.MaxExpandSteps {
				st = stateExtractingComments
				continue
			}
			if err := c.pacer.Wait(ctx); err != nil {
				return err
			}
			more, err := sess.ExpandComments(ctx)
			if err != nil {
				// Extract whatever already loaded.
				logger.Warn().Err(err).Msg("Comment expansion failed, extracting loaded comments")
				st = stateExtractingComments
				continue
			}
			expands++
			if !more {
				st = stateExtractingComments
			}

		case stateExtractingComments:
			texts, err := sess.Comments()
			if err != nil {
				logger.Warn().Err(err).Msg("Comment extraction failed, skipping post")
				st = stateAdvancing
				continue
			}
			records := make([]comment.Record, 0, len(texts))
			for _, text := range texts {
				records = append(records, comment.Record{
					PublishedAt: postDate,
					Text:        text,
					SourceLink:  postURL,
				})
			}
			sink.OfferBatch(records)
			logger.Debug().Int("comments", len(records)).Str("post", postURL).Msg("Extracted post comments")
			st = stateAdvancing

		case stateAdvancing:
			if err := c.pacer.Wait(ctx); err != nil {
				return err
			}
			ok, err := sess.NextPost(ctx)
			if err != nil {
				return fmt.Errorf("advancing to next post: %w", err)
			}
			if !ok {
				logger.Info().Msg("No next post control, traversal complete")
				st = stateDone
				continue
			}
			st = stateAtPost
		}
	}
	return nil
}
