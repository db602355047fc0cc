// Package storage archives accepted submissions as compressed JSON on the
// local filesystem or in S3.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/goliatone/go-intake/pkg/submission"
)

// ErrNotFound is returned when an archived object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// Storage is the blob backend behind the archive.
type Storage interface {
	Put(ctx context.Context, key string, data io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Type selects the backend.
type Type string

const (
	TypeLocal Type = "local"
	TypeS3    Type = "s3"
	// TypeNone disables archiving.
	TypeNone Type = "none"
)

// Config holds backend settings.
type Config struct {
	Type         Type
	LocalPath    string
	S3Bucket     string
	S3Region     string
	AWSAccessKey string
	AWSSecretKey string
}

// New builds the backend named by cfg.Type. TypeNone returns a nil Storage.
func New(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Type {
	case TypeLocal, "":
		return NewLocal(cfg.LocalPath)
	case TypeS3:
		return NewS3(ctx, cfg)
	case TypeNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("storage: unknown type %q", cfg.Type)
	}
}

// Key is the archive location for a request:
// requests/<yyyy>/<mm>/<requestNumber>.json.zst.
func Key(requestNumber string, submittedAt time.Time) string {
	submittedAt = submittedAt.UTC()
	return fmt.Sprintf("requests/%04d/%02d/%s.json.zst", submittedAt.Year(), int(submittedAt.Month()), requestNumber)
}

var (
	encoder     *zstd.Encoder
	decoder     *zstd.Decoder
	encoderOnce sync.Once
	decoderOnce sync.Once
)

func zstdEncoder() *zstd.Encoder {
	encoderOnce.Do(func() {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			panic(fmt.Sprintf("storage: zstd encoder: %v", err))
		}
		encoder = enc
	})
	return encoder
}

func zstdDecoder() *zstd.Decoder {
	decoderOnce.Do(func() {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			panic(fmt.Sprintf("storage: zstd decoder: %v", err))
		}
		decoder = dec
	})
	return decoder
}

// Archive writes and reads compressed request payloads.
type Archive struct {
	store Storage
}

// NewArchive wraps a backend.
func NewArchive(store Storage) *Archive {
	return &Archive{store: store}
}

// Save compresses the payload JSON and stores it. It returns the key used.
func (a *Archive) Save(ctx context.Context, payload submission.Payload) (string, error) {
	if payload.SubmittedAt == nil {
		return "", fmt.Errorf("storage: archive %s: submittedAt not set", payload.RequestNumber)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("storage: encode %s: %w", payload.RequestNumber, err)
	}
	key := Key(payload.RequestNumber, *payload.SubmittedAt)
	compressed := zstdEncoder().EncodeAll(raw, make([]byte, 0, len(raw)/2))
	if err := a.store.Put(ctx, key, bytes.NewReader(compressed)); err != nil {
		return "", fmt.Errorf("storage: archive %s: %w", payload.RequestNumber, err)
	}
	return key, nil
}

// Load returns the decompressed JSON stored under key.
func (a *Archive) Load(ctx context.Context, key string) ([]byte, error) {
	rc, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	compressed, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}
	raw, err := zstdDecoder().DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: decompress %s: %w", key, err)
	}
	return raw, nil
}
