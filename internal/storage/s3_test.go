package storage

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testS3Config(endpoint string) S3Config {
	return S3Config{
		Bucket:          "test-bucket",
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	}
}

func TestNewS3Store(t *testing.T) {
	store, err := NewS3Store(t.TempDir(), testS3Config("http://localhost:4566"))
	if err != nil {
		t.Fatalf("NewS3Store() error = %v", err)
	}

	if store.bucket != "test-bucket" {
		t.Errorf("bucket = %v, want test-bucket", store.bucket)
	}
	if store.region != "us-east-1" {
		t.Errorf("region = %v, want us-east-1", store.region)
	}
}

func TestS3Store_InheritsLocalStore(t *testing.T) {
	store, err := NewS3Store(t.TempDir(), testS3Config("http://localhost:4566"))
	if err != nil {
		t.Fatalf("NewS3Store() error = %v", err)
	}

	ctx := context.Background()
	path, err := store.SaveVideo(ctx, "result", bytes.NewReader([]byte("video data")))
	if err != nil {
		t.Fatalf("SaveVideo() error = %v", err)
	}

	rc, err := store.OpenVideo(ctx, path)
	if err != nil {
		t.Fatalf("OpenVideo() error = %v", err)
	}
	defer func() { _ = rc.Close() }()

	content, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(content) != "video data" {
		t.Errorf("content = %q, want %q", content, "video data")
	}
}

func TestS3Store_Archive(t *testing.T) {
	var gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			gotPath = r.URL.Path
			gotBody, _ = io.ReadAll(r.Body)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, err := NewS3Store(t.TempDir(), testS3Config(srv.URL))
	if err != nil {
		t.Fatalf("NewS3Store() error = %v", err)
	}

	url, err := store.Archive(context.Background(), "session-1/video.mp4", bytes.NewReader([]byte("video data")))
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	if !strings.Contains(gotPath, "test-bucket") || !strings.Contains(gotPath, "session-1/video.mp4") {
		t.Errorf("unexpected upload path %q", gotPath)
	}
	if string(gotBody) != "video data" {
		t.Errorf("unexpected uploaded body %q", gotBody)
	}
	if url != "https://test-bucket.s3.us-east-1.amazonaws.com/session-1/video.mp4" {
		t.Errorf("unexpected URL %q", url)
	}
}
