package youtube

import (
	"encoding/json"
	"time"

	"google.golang.org/api/youtube/v3"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/errors"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
)

// ToVideo maps an API detail record to the normalized video model.
// Missing parts leave their fields at zero values.
func ToVideo(item *youtube.Video) *model.Video {
	v := &model.Video{
		VideoID:         item.Id,
		Tags:            []string{},
		TopicCategories: []string{},
	}

	if s := item.Snippet; s != nil {
		v.ChannelID = s.ChannelId
		v.ChannelTitle = s.ChannelTitle
		v.Title = s.Title
		v.Description = s.Description
		if s.Tags != nil {
			v.Tags = s.Tags
		}
		if t, err := time.Parse(time.RFC3339, s.PublishedAt); err == nil {
			v.PublishedAt = t
		}
	}
	if cd := item.ContentDetails; cd != nil {
		v.Duration = DecodeDuration(cd.Duration)
	}
	if st := item.Statistics; st != nil {
		v.ViewCount = clampCount(st.ViewCount)
		v.LikeCount = clampCount(st.LikeCount)
		v.CommentCount = clampCount(st.CommentCount)
	}
	if p := item.Player; p != nil {
		v.EmbedHTML = p.EmbedHtml
	}
	if td := item.TopicDetails; td != nil && td.TopicCategories != nil {
		v.TopicCategories = td.TopicCategories
	}
	return v
}

// ToRawVideo keeps the full API payload as an opaque JSON blob
func ToRawVideo(item *youtube.Video) (*model.RawVideo, error) {
	blob, err := json.Marshal(item)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to encode raw video "+item.Id)
	}
	return &model.RawVideo{VideoID: item.Id, RawMetadata: blob}, nil
}

// ToChannelDetails maps a channels.list item; handle is used when the API omits customUrl
func ToChannelDetails(item *youtube.Channel, handle string) *model.ChannelDetails {
	d := &model.ChannelDetails{
		ChannelID: item.Id,
		Handle:    handle,
	}

	if s := item.Snippet; s != nil {
		d.Title = s.Title
		d.Description = s.Description
		d.ThumbnailURL = thumbnailURL(s.Thumbnails)
	}
	if cd := item.ContentDetails; cd != nil && cd.RelatedPlaylists != nil {
		d.UploadsPlaylistID = cd.RelatedPlaylists.Uploads
	}
	if st := item.Statistics; st != nil {
		d.SubscriberCount = clampCount(st.SubscriberCount)
		d.ViewCount = clampCount(st.ViewCount)
		d.VideoCount = clampCount(st.VideoCount)
	}
	return d
}

func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, thumb := range []*youtube.Thumbnail{t.High, t.Medium, t.Default} {
		if thumb != nil && thumb.Url != "" {
			return thumb.Url
		}
	}
	return ""
}

func clampCount(n uint64) int64 {
	const maxInt64 = 1<<63 - 1
	if n > maxInt64 {
		return maxInt64
	}
	return int64(n)
}
