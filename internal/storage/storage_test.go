package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-intake/pkg/intake"
	"github.com/goliatone/go-intake/pkg/submission"
)

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []*s3.PutObjectInput
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[aws.ToString(in.Key)] = data
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func samplePayload() submission.Payload {
	at := time.Date(2026, time.March, 7, 15, 4, 5, 0, time.UTC)
	return submission.Payload{
		RequestNumber: "lr-204060",
		BranchID:      "asylum",
		Locale:        "es",
		Answers: intake.Answers{
			"entryMethod":    intake.Text("a pie"),
			"afraidToReturn": intake.Choice("no"),
		},
		SubmittedAt: &at,
	}
}

func TestKeyLayout(t *testing.T) {
	at := time.Date(2025, time.November, 30, 23, 30, 0, 0, time.FixedZone("x", -5*3600))
	if got, want := Key("lr-123456", at), "requests/2025/12/lr-123456.json.zst"; got != want {
		t.Fatalf("Key = %q, want %q", got, want)
	}
}

func TestArchiveRoundTripLocal(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	archiveRoundTrip(t, store)
}

func TestArchiveRoundTripS3(t *testing.T) {
	fake := &fakeS3{}
	archiveRoundTrip(t, NewS3WithClient(fake, "intake"))

	if len(fake.puts) != 1 || aws.ToString(fake.puts[0].Bucket) != "intake" {
		t.Fatalf("unexpected puts %+v", fake.puts)
	}
	if aws.ToString(fake.puts[0].ContentEncoding) != "zstd" {
		t.Fatalf("expected zstd content encoding")
	}
}

func archiveRoundTrip(t *testing.T, store Storage) {
	t.Helper()
	ctx := context.Background()
	archive := NewArchive(store)
	payload := samplePayload()

	key, err := archive.Save(ctx, payload)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if key != "requests/2026/03/lr-204060.json.zst" {
		t.Fatalf("unexpected key %q", key)
	}

	raw, err := archive.Load(ctx, key)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want, _ := json.Marshal(payload)
	if diff := cmp.Diff(string(want), string(raw)); diff != "" {
		t.Fatalf("archived payload mismatch (-want +got):\n%s", diff)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := archive.Load(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestArchiveRequiresSubmittedAt(t *testing.T) {
	payload := samplePayload()
	payload.SubmittedAt = nil
	if _, err := NewArchive(nil).Save(context.Background(), payload); err == nil {
		t.Fatalf("expected error without submittedAt")
	}
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	for _, key := range []string{"../outside", "/etc/passwd"} {
		if err := store.Put(context.Background(), key, bytes.NewReader(nil)); err == nil {
			t.Fatalf("expected %q to be rejected", key)
		}
	}
}

func TestNewSelectsBackend(t *testing.T) {
	store, err := New(context.Background(), Config{Type: TypeNone})
	if err != nil || store != nil {
		t.Fatalf("none should disable storage, got %v %v", store, err)
	}
	if _, err := New(context.Background(), Config{Type: "ftp"}); err == nil {
		t.Fatalf("expected unknown type error")
	}
	if _, err := New(context.Background(), Config{Type: TypeS3}); err == nil {
		t.Fatalf("expected missing bucket error")
	}
	if _, err := New(context.Background(), Config{Type: TypeLocal, LocalPath: t.TempDir()}); err != nil {
		t.Fatalf("local: %v", err)
	}
}
