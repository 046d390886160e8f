package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/commentscope/commentscope/internal/crawler"
)

// Session abstracts the automated browsing of one account's feed. A session
// is positioned on one post at a time; the accessor methods read the current
// post and the navigation methods move it.
type Session interface {
	Login(ctx context.Context) error
	// OpenProfile locates the account and opens its most recent post.
	OpenProfile(ctx context.Context, account string) error
	PostDate() (time.Time, error)
	PostBody() (string, error)
	PostURL() (string, error)
	// ExpandComments loads one more page of the current post's comment
	// section, reporting whether more remain.
	ExpandComments(ctx context.Context) (bool, error)
	Comments() ([]string, error)
	// NextPost advances to the next (older) post. A missing next control
	// returns (false, nil): the feed is exhausted.
	NextPost(ctx context.Context) (bool, error)
	Close() error
}

// htmlSession is the production Session over plain HTTP and parsed HTML.
type htmlSession struct {
	config *Config
	http   *http.Client
	csrf   string

	postURL string
	doc     *html.Node
}

func newHTMLSession(config *Config) (*htmlSession, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &htmlSession{
		config: config,
		http: &http.Client{
			Jar:     jar,
			Timeout: config.RequestTimeout,
		},
	}, nil
}

// Login seeds the CSRF token from the landing page and authenticates.
func (s *htmlSession) Login(ctx context.Context) error {
	if _, err := s.fetch(ctx, s.config.BaseURL+"/"); err != nil {
		return err
	}
	base, err := url.Parse(s.config.BaseURL)
	if err != nil {
		return err
	}
	for _, c := range s.http.Jar.Cookies(base) {
		if c.Name == "csrftoken" {
			s.csrf = c.Value
		}
	}

	form := url.Values{
		"username":     {s.config.Username},
		"enc_password": {fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), s.config.Password)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.config.BaseURL+"/accounts/login/ajax/", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRFToken", s.csrf)

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login rejected with HTTP %d", resp.StatusCode)
	}
	var result struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("malformed login response: %w", err)
	}
	if !result.Authenticated {
		return fmt.Errorf("authentication failed for %s", s.config.Username)
	}
	return nil
}

// OpenProfile fetches the profile page and follows the first (most recent)
// post link.
func (s *htmlSession) OpenProfile(ctx context.Context, account string) error {
	doc, err := s.fetch(ctx, s.config.BaseURL+"/"+url.PathEscape(account)+"/")
	if err != nil {
		return fmt.Errorf("%w: %s", crawler.ErrAccountNotFound, account)
	}

	link := findFirst(doc, func(n *html.Node) bool {
		return n.Data == "a" && strings.HasPrefix(attr(n, "href"), "/p/")
	})
	if link == nil {
		return fmt.Errorf("%w: %s has no posts", crawler.ErrAccountNotFound, account)
	}
	return s.open(ctx, s.config.BaseURL+attr(link, "href"))
}

func (s *htmlSession) open(ctx context.Context, postURL string) error {
	doc, err := s.fetch(ctx, postURL)
	if err != nil {
		return err
	}
	s.postURL = postURL
	s.doc = doc
	return nil
}

// PostDate reads the first time element's datetime attribute.
func (s *htmlSession) PostDate() (time.Time, error) {
	node := findFirst(s.doc, func(n *html.Node) bool {
		return n.Data == "time" && attr(n, "datetime") != ""
	})
	if node == nil {
		return time.Time{}, fmt.Errorf("post has no timestamp element")
	}
	t, err := time.Parse(time.RFC3339, attr(node, "datetime"))
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable post timestamp %q: %w", attr(node, "datetime"), err)
	}
	return t, nil
}

// PostBody reads the caption, preferring the og:description meta tag.
func (s *htmlSession) PostBody() (string, error) {
	meta := findFirst(s.doc, func(n *html.Node) bool {
		return n.Data == "meta" && attr(n, "property") == "og:description"
	})
	if meta != nil {
		return attr(meta, "content"), nil
	}
	caption := findFirst(s.doc, func(n *html.Node) bool {
		return n.Data == "h1"
	})
	if caption == nil {
		return "", fmt.Errorf("post has no caption")
	}
	return textContent(caption), nil
}

func (s *htmlSession) PostURL() (string, error) {
	if s.postURL == "" {
		return "", fmt.Errorf("no post open")
	}
	return s.postURL, nil
}

// ExpandComments follows the load-more link of the comment section, merging
// the fetched comment list into the current document.
func (s *htmlSession) ExpandComments(ctx context.Context) (bool, error) {
	more := findFirst(s.doc, func(n *html.Node) bool {
		return n.Data == "a" && strings.Contains(attr(n, "href"), "/comments/")
	})
	if more == nil {
		return false, nil
	}

	doc, err := s.fetch(ctx, s.config.BaseURL+attr(more, "href"))
	if err != nil {
		return false, err
	}
	// Append the loaded comment items and drop the used link so the loop
	// terminates on a page that repeats itself.
	parent := more.Parent
	parent.RemoveChild(more)
	list := findFirst(s.doc, func(n *html.Node) bool { return n.Data == "ul" })
	if list != nil {
		for _, item := range findAll(doc, func(n *html.Node) bool { return n.Data == "li" }) {
			item.Parent.RemoveChild(item)
			list.AppendChild(item)
		}
	}
	next := findFirst(doc, func(n *html.Node) bool {
		return n.Data == "a" && strings.Contains(attr(n, "href"), "/comments/")
	})
	if next != nil {
		next.Parent.RemoveChild(next)
		parent.AppendChild(next)
	}
	return next != nil, nil
}

// Comments extracts the text of every list item in the comment section.
// Items with no text are skipped.
func (s *htmlSession) Comments() ([]string, error) {
	list := findFirst(s.doc, func(n *html.Node) bool { return n.Data == "ul" })
	if list == nil {
		return nil, nil
	}
	var texts []string
	for _, item := range findAll(list, func(n *html.Node) bool { return n.Data == "li" }) {
		if text := strings.TrimSpace(textContent(item)); text != "" {
			texts = append(texts, text)
		}
	}
	return texts, nil
}

// NextPost follows the next-post control. Its absence ends the feed.
func (s *htmlSession) NextPost(ctx context.Context) (bool, error) {
	next := findFirst(s.doc, func(n *html.Node) bool {
		return n.Data == "a" && attr(n, "rel") == "next"
	})
	if next == nil {
		return false, nil
	}
	href := attr(next, "href")
	if !strings.HasPrefix(href, "http") {
		href = s.config.BaseURL + href
	}
	if err := s.open(ctx, href); err != nil {
		return false, err
	}
	return true, nil
}

func (s *htmlSession) Close() error {
	s.http.CloseIdleConnections()
	return nil
}

func (s *htmlSession) fetch(ctx context.Context, pageURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, pageURL)
	}
	doc, err := html.Parse(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

func findFirst(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, pred); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var matches []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && pred(n) {
			matches = append(matches, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return matches
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
