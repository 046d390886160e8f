package comment

import (
	"fmt"
	"time"
)

// Platform identifies a comment source.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformYouTube   Platform = "youtube"
)

// ParsePlatform validates a caller-supplied platform name.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformInstagram, PlatformYouTube:
		return Platform(s), nil
	}
	return "", fmt.Errorf("invalid platform %q: choose %q or %q", s, PlatformInstagram, PlatformYouTube)
}

// Record is a single collected comment. Records are immutable once created;
// classification routes them to different outputs but never mutates them.
type Record struct {
	// PublishedAt is the comment's publish timestamp in the source's
	// reference timezone (KST for Instagram, UTC for YouTube).
	PublishedAt time.Time `json:"published_at"`
	Text        string    `json:"text"`
	// SourceLink is the post or video URL the comment was collected from.
	SourceLink string `json:"source_link"`
}

// Date renders the publish date in the canonical corpus format.
func (r Record) Date() string {
	return r.PublishedAt.Format("2006-01-02")
}

// Validate checks required record fields.
func (r Record) Validate() error {
	if r.Text == "" {
		return fmt.Errorf("record text cannot be empty")
	}
	if r.SourceLink == "" {
		return fmt.Errorf("record source link cannot be empty")
	}
	if r.PublishedAt.IsZero() {
		return fmt.Errorf("record must have a publish timestamp")
	}
	return nil
}
