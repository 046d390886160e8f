package youtube

import "time"

// video is one in-window upload of the resolved channel.
type video struct {
	ID          string
	Title       string
	PublishedAt time.Time
}

// searchResponse covers both channel and video search calls.
type searchResponse struct {
	NextPageToken string       `json:"nextPageToken"`
	Items         []searchItem `json:"items"`
}

type searchItem struct {
	ID struct {
		ChannelID string `json:"channelId"`
		VideoID   string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title       string `json:"title"`
		PublishedAt string `json:"publishedAt"`
	} `json:"snippet"`
}

// threadsResponse is a page of top-level comment threads.
type threadsResponse struct {
	NextPageToken string       `json:"nextPageToken"`
	Items         []threadItem `json:"items"`
}

type threadItem struct {
	Snippet struct {
		TopLevelComment struct {
			Snippet struct {
				TextDisplay string `json:"textDisplay"`
				PublishedAt string `json:"publishedAt"`
			} `json:"snippet"`
		} `json:"topLevelComment"`
	} `json:"snippet"`
}

// errorResponse is the error envelope of the Data API.
type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}
