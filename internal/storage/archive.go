// Package storage archives raw video payloads to S3-compatible object storage.
package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/Taichi-iskw/yt-shorts-trend/internal/config"
	"github.com/Taichi-iskw/yt-shorts-trend/internal/model"
)

// Archive wraps an S3-compatible client. Without an endpoint it is disabled
// and every call is a no-op.
type Archive struct {
	s3     *s3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// archiveLine is one JSON line of an archived batch
type archiveLine struct {
	VideoID     string          `json:"video_id"`
	RawMetadata json.RawMessage `json:"raw_metadata"`
}

// NewArchive creates a new archive client
func NewArchive(ctx context.Context, cfg config.S3Config, logger *slog.Logger) (*Archive, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "raw_archive")

	if cfg.Endpoint == "" {
		logger.Info("S3 endpoint not configured, raw archive disabled")
		return &Archive{bucket: cfg.Bucket, prefix: cfg.Prefix, logger: logger}, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &Archive{
		s3:     client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logger,
	}, nil
}

// Configured reports whether uploads are enabled
func (a *Archive) Configured() bool {
	return a != nil && a.s3 != nil
}

// BatchKey returns the object key of a run's archive
func (a *Archive) BatchKey(runID uuid.UUID, at time.Time) string {
	return path.Join(a.prefix, at.UTC().Format("2006/01/02"), runID.String()+".jsonl.gz")
}

// StoreRawBatch uploads the batch as gzip-compressed JSON lines and returns the object key.
// An empty batch or a disabled archive uploads nothing and returns "".
func (a *Archive) StoreRawBatch(ctx context.Context, runID uuid.UUID, at time.Time, videos []*model.RawVideo) (string, error) {
	if !a.Configured() || len(videos) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	enc := json.NewEncoder(zw)
	for _, v := range videos {
		if err := enc.Encode(archiveLine{VideoID: v.VideoID, RawMetadata: v.RawMetadata}); err != nil {
			return "", fmt.Errorf("storage: encode %s: %w", v.VideoID, err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("storage: compress batch: %w", err)
	}

	key := a.BatchKey(runID, at)
	_, err := a.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(a.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(buf.Bytes()),
		ContentType:     aws.String("application/x-ndjson"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return "", fmt.Errorf("storage: upload %s: %w", key, err)
	}

	a.logger.Debug("raw batch archived", "key", key, "videos", len(videos), "bytes", buf.Len())
	return key, nil
}

// LoadRawBatch downloads and decodes an archive written by StoreRawBatch
func (a *Archive) LoadRawBatch(ctx context.Context, key string) ([]*model.RawVideo, error) {
	if !a.Configured() {
		return nil, fmt.Errorf("storage: not configured")
	}

	out, err := a.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("storage: get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return decodeBatch(data)
}

func decodeBatch(data []byte) ([]*model.RawVideo, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("storage: decompress batch: %w", err)
	}
	defer zr.Close()

	var videos []*model.RawVideo
	dec := json.NewDecoder(zr)
	for dec.More() {
		var line archiveLine
		if err := dec.Decode(&line); err != nil {
			return nil, fmt.Errorf("storage: decode batch: %w", err)
		}
		videos = append(videos, &model.RawVideo{VideoID: line.VideoID, RawMetadata: line.RawMetadata})
	}
	return videos, nil
}
