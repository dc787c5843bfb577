package youtube

import (
	"unicode"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
)

// Filter decides which detailed videos qualify as target-language shorts
type Filter struct {
	MinSeconds int // exclusive
	MaxSeconds int // inclusive
	Script     *unicode.RangeTable
}

// Keep reports whether a video of the given duration and title passes the filter
func (f Filter) Keep(durationSeconds int, title string) bool {
	if durationSeconds <= f.MinSeconds || durationSeconds > f.MaxSeconds {
		return false
	}
	return HasScript(title, f.Script)
}

// KeepVideo applies Keep to a normalized video
func (f Filter) KeepVideo(v *model.Video) bool {
	return f.Keep(v.Duration, v.Title)
}

// HasScript reports whether s contains at least one rune of the script
func HasScript(s string, script *unicode.RangeTable) bool {
	if script == nil {
		return false
	}
	for _, r := range s {
		if unicode.Is(script, r) {
			return true
		}
	}
	return false
}
