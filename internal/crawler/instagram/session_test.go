package instagram

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profilePage = `<html><body>
<div class="grid">
  <a href="/p/newest/"><img alt="thumb"></a>
  <a href="/p/older/"><img alt="thumb"></a>
</div>
</body></html>`

const newestPostPage = `<html><head>
<meta property="og:description" content="일상 공유">
</head><body>
<article>
  <time datetime="2024-01-15T03:00:00Z">January 15</time>
  <ul>
    <li><span>오늘도 멋져요</span></li>
    <li><span></span></li>
    <li><span>잘 보고 갑니다</span></li>
    <a href="/p/newest/comments/?page=2">더 보기</a>
  </ul>
  <a rel="next" href="/p/older/">다음</a>
</article>
</body></html>`

const newestCommentsPage2 = `<html><body>
<ul>
  <li><span>늦게 달린 댓글</span></li>
</ul>
</body></html>`

const olderPostPage = `<html><head>
<meta property="og:description" content="연말 인사">
</head><body>
<article>
  <time datetime="2023-12-20T03:00:00Z">December 20</time>
  <ul><li><span>마지막 댓글</span></li></ul>
</article>
</body></html>`

func newFixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "token123"})
		fmt.Fprint(w, "<html><body>landing</body></html>")
	})
	mux.HandleFunc("/accounts/login/ajax/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-CSRFToken") != "token123" {
			http.Error(w, "csrf", http.StatusForbidden)
			return
		}
		fmt.Fprint(w, `{"authenticated": true}`)
	})
	mux.HandleFunc("/someaccount/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, profilePage)
	})
	mux.HandleFunc("/p/newest/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, newestPostPage)
	})
	mux.HandleFunc("/p/newest/comments/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, newestCommentsPage2)
	})
	mux.HandleFunc("/p/older/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, olderPostPage)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newFixtureSession(t *testing.T) *htmlSession {
	t.Helper()
	server := newFixtureServer(t)
	config := DefaultConfig()
	config.Username = "tester"
	config.Password = "secret"
	config.BaseURL = server.URL

	sess, err := newHTMLSession(config)
	require.NoError(t, err)
	return sess
}

func TestHTMLSessionWalksFeed(t *testing.T) {
	sess := newFixtureSession(t)
	ctx := context.Background()

	require.NoError(t, sess.Login(ctx))
	require.NoError(t, sess.OpenProfile(ctx, "someaccount"))

	date, err := sess.PostDate()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC), date.UTC())

	body, err := sess.PostBody()
	require.NoError(t, err)
	assert.Equal(t, "일상 공유", body)

	postURL, err := sess.PostURL()
	require.NoError(t, err)
	assert.Contains(t, postURL, "/p/newest/")

	// Expanding pulls the second comments page into the list.
	more, err := sess.ExpandComments(ctx)
	require.NoError(t, err)
	assert.False(t, more)

	comments, err := sess.Comments()
	require.NoError(t, err)
	assert.Equal(t, []string{"오늘도 멋져요", "잘 보고 갑니다", "늦게 달린 댓글"}, comments)

	// Advance to the older post, which has no next control.
	ok, err := sess.NextPost(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	date, err = sess.PostDate()
	require.NoError(t, err)
	assert.Equal(t, 2023, date.Year())

	ok, err = sess.NextPost(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, sess.Close())
}

func TestHTMLSessionUnknownAccount(t *testing.T) {
	sess := newFixtureSession(t)
	ctx := context.Background()

	require.NoError(t, sess.Login(ctx))
	err := sess.OpenProfile(ctx, "nosuchaccount/extra")
	assert.Error(t, err)
}
