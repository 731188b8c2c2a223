package gcp

import (
	"strings"
	"testing"
)

func TestResolveObjectStoragePublicBaseURLGCSDefault(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "")

	baseURL, source, err := resolveObjectStoragePublicBaseURL(ObjectStorageConfig{
		Mode: ObjectStorageModeGCS,
	})
	if err != nil {
		t.Fatalf("resolveObjectStoragePublicBaseURL: %v", err)
	}
	if baseURL != "" {
		t.Fatalf("baseURL: want empty got=%q", baseURL)
	}
	if source != "gcs_default" {
		t.Fatalf("source: want=%q got=%q", "gcs_default", source)
	}
}

func TestResolveObjectStoragePublicBaseURLEmulatorFallback(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "")

	baseURL, source, err := resolveObjectStoragePublicBaseURL(ObjectStorageConfig{
		Mode:         ObjectStorageModeGCSEmulator,
		EmulatorHost: "http://fake-gcs:4443",
	})
	if err != nil {
		t.Fatalf("resolveObjectStoragePublicBaseURL: %v", err)
	}
	if baseURL != "http://fake-gcs:4443" {
		t.Fatalf("baseURL: want=%q got=%q", "http://fake-gcs:4443", baseURL)
	}
	if source != "storage_emulator_host" {
		t.Fatalf("source: want=%q got=%q", "storage_emulator_host", source)
	}
}

func TestResolveObjectStoragePublicBaseURLEnvOverride(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "http://localhost:4443/")

	baseURL, source, err := resolveObjectStoragePublicBaseURL(ObjectStorageConfig{
		Mode:         ObjectStorageModeGCSEmulator,
		EmulatorHost: "http://fake-gcs:4443",
	})
	if err != nil {
		t.Fatalf("resolveObjectStoragePublicBaseURL: %v", err)
	}
	if baseURL != "http://localhost:4443" {
		t.Fatalf("baseURL: want=%q got=%q", "http://localhost:4443", baseURL)
	}
	if source != "object_storage_public_base_url" {
		t.Fatalf("source: want=%q got=%q", "object_storage_public_base_url", source)
	}
}

func TestResolveObjectStoragePublicBaseURLInvalidEnv(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_PUBLIC_BASE_URL", "localhost:4443")

	_, _, err := resolveObjectStoragePublicBaseURL(ObjectStorageConfig{
		Mode:         ObjectStorageModeGCSEmulator,
		EmulatorHost: "http://fake-gcs:4443",
	})
	if err == nil {
		t.Fatalf("resolveObjectStoragePublicBaseURL: expected error, got nil")
	}
}

func TestPublicURLGCSDefault(t *testing.T) {
	bs := &bucketService{bucketName: "media-bucket"}

	got := bs.PublicURL("thumbs/v1/poster.jpg")
	want := "https://storage.googleapis.com/media-bucket/thumbs/v1/poster.jpg"
	if got != want {
		t.Fatalf("PublicURL: want=%q got=%q", want, got)
	}
}

func TestPublicURLUsesCDNDomain(t *testing.T) {
	bs := &bucketService{
		bucketName: "media-bucket",
		cdnDomain:  "cdn.example.com",
	}

	got := bs.PublicURL("hls/v1/720p/index.m3u8")
	want := "https://cdn.example.com/hls/v1/720p/index.m3u8"
	if got != want {
		t.Fatalf("PublicURL: want=%q got=%q", want, got)
	}
}

func TestPublicURLUsesPublicBaseURL(t *testing.T) {
	bs := &bucketService{
		publicBaseURL: "http://localhost:4443",
		bucketName:    "media-bucket",
	}

	got := bs.PublicURL("/thumbs/v1/poster.jpg")
	want := "http://localhost:4443/media-bucket/thumbs/v1/poster.jpg"
	if got != want {
		t.Fatalf("PublicURL: want=%q got=%q", want, got)
	}
}

func TestPublicURLUsesEmulatorMediaEndpoint(t *testing.T) {
	bs := &bucketService{
		storageMode:   ObjectStorageModeGCSEmulator,
		publicBaseURL: "http://localhost:4443",
		bucketName:    "media-bucket",
	}

	got := bs.PublicURL("raw/u1/v1.mp4")
	want := "http://localhost:4443/storage/v1/b/media-bucket/o/raw%2Fu1%2Fv1.mp4?alt=media"
	if got != want {
		t.Fatalf("PublicURL: want=%q got=%q", want, got)
	}
}

func TestPublicURLUsesEmulatorHostWhenPublicBaseMissing(t *testing.T) {
	bs := &bucketService{
		storageMode:  ObjectStorageModeGCSEmulator,
		emulatorHost: "http://fake-gcs:4443",
		bucketName:   "media-bucket",
	}

	got := bs.PublicURL("/raw/u1/v1.mp4")
	want := "http://fake-gcs:4443/storage/v1/b/media-bucket/o/raw%2Fu1%2Fv1.mp4?alt=media"
	if got != want {
		t.Fatalf("PublicURL: want=%q got=%q", want, got)
	}
}

func TestContentTypeForKey(t *testing.T) {
	cases := []struct {
		key  string
		want string
	}{
		{"hls/v1/720p/index.m3u8", "application/vnd.apple.mpegurl"},
		{"hls/v1/720p/seg_001.ts", "video/MP2T"},
		{"thumbs/v1/poster.jpg", "image/jpeg"},
		{"captions/v1/en.vtt", "text/vtt"},
		{"raw/u1/v1.mp4", "video/mp4"},
		{"unknown/path", "application/octet-stream"},
	}
	for _, tc := range cases {
		if got := contentTypeForKey(tc.key); got != tc.want {
			t.Fatalf("contentTypeForKey(%q): want=%q got=%q", tc.key, tc.want, got)
		}
	}
}

func TestDeterministicKeys(t *testing.T) {
	if got, want := KeyForRaw("u1", "v1", "mp4"), "raw/u1/v1.mp4"; got != want {
		t.Fatalf("KeyForRaw: want=%q got=%q", want, got)
	}
	if got, want := KeyForHLSPlaylist("v1", "720p"), "hls/v1/720p/index.m3u8"; got != want {
		t.Fatalf("KeyForHLSPlaylist: want=%q got=%q", want, got)
	}
	if got, want := KeyForPoster("v1"), "thumbs/v1/poster.jpg"; got != want {
		t.Fatalf("KeyForPoster: want=%q got=%q", want, got)
	}
	if got, want := KeyForCaptions("v1", "en"), "captions/v1/en.vtt"; got != want {
		t.Fatalf("KeyForCaptions: want=%q got=%q", want, got)
	}
	if !strings.HasPrefix(KeyForHLSDir("v1", "480p"), "hls/v1/480p") {
		t.Fatalf("KeyForHLSDir unexpected: %q", KeyForHLSDir("v1", "480p"))
	}
}
