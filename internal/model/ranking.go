package model

import (
	"encoding/json"
	"fmt"
)

// RankChangeKind describes how a keyword moved between two snapshots
type RankChangeKind string

const (
	RankUp   RankChangeKind = "up"
	RankDown RankChangeKind = "down"
	RankSame RankChangeKind = "same"
	RankNew  RankChangeKind = "new"
)

// RankChange is the day-over-day movement of a keyword
type RankChange struct {
	Kind   RankChangeKind
	Amount int
}

// NewRankChange builds a RankChange from yesterday's and today's positions
func NewRankChange(yesterday, today int) RankChange {
	diff := yesterday - today
	switch {
	case diff > 0:
		return RankChange{Kind: RankUp, Amount: diff}
	case diff < 0:
		return RankChange{Kind: RankDown, Amount: -diff}
	default:
		return RankChange{Kind: RankSame}
	}
}

func (c RankChange) String() string {
	switch c.Kind {
	case RankUp:
		return fmt.Sprintf("▲%d", c.Amount)
	case RankDown:
		return fmt.Sprintf("▼%d", c.Amount)
	case RankNew:
		return "NEW"
	default:
		return "-"
	}
}

// MarshalJSON encodes Up/Down as {"up":n} and Same/New as plain strings
func (c RankChange) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case RankUp, RankDown:
		return json.Marshal(map[string]int{string(c.Kind): c.Amount})
	case RankSame, RankNew:
		return json.Marshal(string(c.Kind))
	default:
		return nil, fmt.Errorf("unknown rank change kind %q", c.Kind)
	}
}

// UnmarshalJSON accepts the encoding produced by MarshalJSON
func (c *RankChange) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch RankChangeKind(s) {
		case RankSame, RankNew:
			*c = RankChange{Kind: RankChangeKind(s)}
			return nil
		}
		return fmt.Errorf("unknown rank change %q", s)
	}

	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for k, v := range m {
		switch RankChangeKind(k) {
		case RankUp, RankDown:
			*c = RankChange{Kind: RankChangeKind(k), Amount: v}
			return nil
		}
	}
	return fmt.Errorf("unknown rank change %s", string(data))
}

// KeywordRankingView is a ranking row annotated with its movement since yesterday
type KeywordRankingView struct {
	Rank        int        `json:"ranking"`
	KeywordText string     `json:"keywordText"`
	Score       int64      `json:"score"`
	RankChange  RankChange `json:"rankChange"`
}

// Page is a paginated listing envelope
type Page[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

// NewPage computes TotalPages from totalItems and size
func NewPage[T any](items []T, page, size int, totalItems int64) Page[T] {
	totalPages := 0
	if size > 0 {
		totalPages = int((totalItems + int64(size) - 1) / int64(size))
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:      items,
		Page:       page,
		Size:       size,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}
