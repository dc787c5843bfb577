package model

import (
	"encoding/json"
	"time"
)

// RawVideo is the untouched detail payload of a video as returned by the video platform
type RawVideo struct {
	ID          int64           `json:"id" db:"id"`
	VideoID     string          `json:"video_id" db:"video_id"`
	RawMetadata json.RawMessage `json:"raw_metadata" db:"raw_metadata"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Video represents normalized short-form video information
type Video struct {
	ID              int64     `json:"id" db:"id"`
	VideoID         string    `json:"video_id" db:"video_id"`
	PublishedAt     time.Time `json:"published_at" db:"published_at"`
	ChannelID       string    `json:"channel_id" db:"channel_id"`
	ChannelTitle    string    `json:"channel_title" db:"channel_title"`
	Title           string    `json:"title" db:"title"`
	Description     string    `json:"description" db:"description"`
	Tags            []string  `json:"tags" db:"tags"`
	Duration        int       `json:"duration" db:"duration"` // duration in seconds
	ViewCount       int64     `json:"view_count" db:"view_count"`
	LikeCount       int64     `json:"like_count" db:"like_count"`
	CommentCount    int64     `json:"comment_count" db:"comment_count"`
	EmbedHTML       string    `json:"embed_html" db:"embed_html"`
	TopicCategories []string  `json:"topic_categories" db:"topic_categories"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Keyword is a distinct keyword text extracted from video metadata
type Keyword struct {
	ID   int64  `json:"id" db:"id"`
	Text string `json:"keyword_text" db:"keyword_text"`
}

// KeywordScore is the summed view count of one keyword over a ranking window
type KeywordScore struct {
	KeywordID int64  `json:"keyword_id" db:"keyword_id"`
	Text      string `json:"keyword_text" db:"keyword_text"`
	Score     int64  `json:"score" db:"score"`
}

// KeywordRanking is one row of a daily ranking snapshot
type KeywordRanking struct {
	ID          int64     `json:"id" db:"id"`
	RankingDate time.Time `json:"ranking_date" db:"ranking_date"`
	Rank        int       `json:"ranking" db:"ranking"`
	KeywordID   int64     `json:"keyword_id" db:"keyword_id"`
	KeywordText string    `json:"keyword_text" db:"keyword_text"`
	Score       int64     `json:"score" db:"score"`
}

// Channel represents a YouTube channel submitted for keyword analysis
type Channel struct {
	ID              int64     `json:"id" db:"id"`
	ChannelID       string    `json:"channel_id" db:"channel_id"`
	Handle          string    `json:"channel_handle" db:"channel_handle"`
	Title           string    `json:"channel_title" db:"channel_title"`
	ThumbnailURL    string    `json:"thumbnail_url" db:"thumbnail_url"`
	Description     string    `json:"description" db:"description"`
	SubscriberCount int64     `json:"subscriber_count" db:"subscriber_count"`
	ViewCount       int64     `json:"view_count" db:"view_count"`
	VideoCount      int64     `json:"video_count" db:"video_count"`
	Completion      bool      `json:"completion" db:"completion"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// ChannelKeyword is the view-weighted score of a keyword across a channel's uploads
type ChannelKeyword struct {
	ID          int64  `json:"id" db:"id"`
	ChannelID   int64  `json:"channel_id" db:"channel_id"`
	KeywordText string `json:"keyword_text" db:"keyword_text"`
	ViewCount   int64  `json:"view_count" db:"view_count"`
}

// ChannelDetails is what the video platform reports for a channel handle
type ChannelDetails struct {
	ChannelID         string
	Handle            string
	Title             string
	Description       string
	ThumbnailURL      string
	UploadsPlaylistID string
	SubscriberCount   int64
	ViewCount         int64
	VideoCount        int64
}

// ToChannel converts details into a not-yet-completed Channel row
func (d *ChannelDetails) ToChannel() *Channel {
	return &Channel{
		ChannelID:       d.ChannelID,
		Handle:          d.Handle,
		Title:           d.Title,
		ThumbnailURL:    d.ThumbnailURL,
		Description:     d.Description,
		SubscriberCount: d.SubscriberCount,
		ViewCount:       d.ViewCount,
		VideoCount:      d.VideoCount,
		Completion:      false,
	}
}
