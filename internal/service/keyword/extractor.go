package keyword

import (
	"context"
	_ "embed"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/config"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/errors"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
)

//go:embed prompt.txt
var defaultPrompt string

const (
	videoDataPlaceholder = "__VIDEO_DATA_PLACEHOLDER__"
	maxDescriptionRunes  = 1000
)

// videoSummary is the per-video payload embedded in the prompt
type videoSummary struct {
	VideoID     string   `json:"video_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

type keywordResult struct {
	VideoID  string   `json:"video_id"`
	Keywords []string `json:"keywords"`
}

type keywordEnvelope struct {
	Results []keywordResult `json:"results"`
}

// Extractor turns a batch of videos into a video-id to keywords map with one model call
type Extractor struct {
	generator      Generator
	prompt         string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	timeout        time.Duration
	logger         *slog.Logger
}

// NewExtractor creates an Extractor using the embedded prompt template
func NewExtractor(generator Generator, cfg config.ExtractorConfig, timeout time.Duration, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Extractor{
		generator:      generator,
		prompt:         defaultPrompt,
		maxAttempts:    maxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		timeout:        timeout,
		logger:         logger.With("component", "keyword_extractor"),
	}
}

// Extract returns the keywords for each video id in the batch.
// An empty batch makes no call. Generation failures are retried with jittered
// exponential backoff; a response that cannot be parsed fails immediately.
func (e *Extractor) Extract(ctx context.Context, videos []*model.Video) (map[string][]string, error) {
	if len(videos) == 0 {
		return map[string][]string{}, nil
	}

	prompt, err := e.buildPrompt(videos)
	if err != nil {
		return nil, err
	}

	var result map[string][]string
	attempt := 0
	operation := func() error {
		attempt++
		callCtx := ctx
		if e.timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, e.timeout)
			defer cancel()
		}

		text, err := e.generator.Generate(callCtx, prompt)
		if err != nil {
			if errors.HasCode(err, errors.CodeMalformedResponse) {
				return backoff.Permanent(err)
			}
			return err
		}

		parsed, err := parseResponse(text)
		if err != nil {
			return backoff.Permanent(err)
		}
		result = parsed
		return nil
	}

	notify := func(err error, wait time.Duration) {
		e.logger.Warn("keyword extraction attempt failed, retrying",
			"attempt", attempt, "videos", len(videos), "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(operation, e.newBackOff(ctx), notify); err != nil {
		if errors.HasCode(err, errors.CodeMalformedResponse) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CodeExternal, "keyword extraction failed after retries")
	}

	e.logger.Debug("keywords extracted", "videos", len(videos), "results", len(result), "attempts", attempt)
	return result, nil
}

func (e *Extractor) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if e.initialBackoff > 0 {
		b.InitialInterval = e.initialBackoff
	}
	if e.maxBackoff > 0 {
		b.MaxInterval = e.maxBackoff
	}
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(e.maxAttempts-1)), ctx)
}

func (e *Extractor) buildPrompt(videos []*model.Video) (string, error) {
	summaries := make([]videoSummary, 0, len(videos))
	for _, v := range videos {
		tags := v.Tags
		if tags == nil {
			tags = []string{}
		}
		summaries = append(summaries, videoSummary{
			VideoID:     v.VideoID,
			Title:       v.Title,
			Description: truncateRunes(v.Description, maxDescriptionRunes),
			Tags:        tags,
		})
	}

	data, err := json.Marshal(summaries)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "failed to encode prompt data")
	}
	return strings.Replace(e.prompt, videoDataPlaceholder, string(data), 1), nil
}

// parseResponse accepts either {"results":[...]} or a bare array of results,
// optionally wrapped in a markdown code fence
func parseResponse(text string) (map[string][]string, error) {
	body := stripFences(text)
	if body == "" {
		return nil, errors.New(errors.CodeMalformedResponse, "empty keyword response")
	}

	var results []keywordResult
	if strings.HasPrefix(body, "[") {
		if err := json.Unmarshal([]byte(body), &results); err != nil {
			return nil, errors.Wrap(err, errors.CodeMalformedResponse, "keyword response is not valid JSON")
		}
	} else {
		var envelope keywordEnvelope
		if err := json.Unmarshal([]byte(body), &envelope); err != nil {
			return nil, errors.Wrap(err, errors.CodeMalformedResponse, "keyword response is not valid JSON")
		}
		if envelope.Results == nil {
			return nil, errors.New(errors.CodeMalformedResponse, "keyword response has no results field")
		}
		results = envelope.Results
	}

	out := make(map[string][]string, len(results))
	for _, r := range results {
		id := strings.TrimSpace(r.VideoID)
		if id == "" {
			return nil, errors.New(errors.CodeMalformedResponse, "keyword result without video_id")
		}
		keywords := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.TrimSpace(k); k != "" {
				keywords = append(keywords, k)
			}
		}
		out[id] = append(out[id], keywords...)
	}
	return out, nil
}

func stripFences(text string) string {
	body := strings.TrimSpace(text)
	if !strings.HasPrefix(body, "```") {
		return body
	}
	body = strings.TrimPrefix(body, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
