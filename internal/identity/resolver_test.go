package identity

import (
	"testing"
	"time"

	"mediafetch/internal/domain"
)

func TestResolveVideoID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "standard watch link",
			url:  "https://www.youtube.com/watch?v=abcdefghijk",
			want: "abcdefghijk",
		},
		{
			name: "watch link with extra params",
			url:  "https://www.youtube.com/watch?list=PL123&v=abcdefghijk&t=42",
			want: "abcdefghijk",
		},
		{
			name: "short link",
			url:  "https://youtu.be/abcdefghijk",
			want: "abcdefghijk",
		},
		{
			name: "short link with query",
			url:  "https://youtu.be/abcdefghijk?t=10",
			want: "abcdefghijk",
		},
		{
			name: "embed link",
			url:  "https://www.youtube.com/embed/abcdefghijk",
			want: "abcdefghijk",
		},
		{
			name: "shorts link",
			url:  "https://youtube.com/shorts/abcdefghijk",
			want: "abcdefghijk",
		},
		{
			name: "nocookie embed",
			url:  "https://www.youtube-nocookie.com/embed/abcdefghijk",
			want: "abcdefghijk",
		},
		{
			name: "id with dash and underscore",
			url:  "https://youtu.be/a-b_cdefghi",
			want: "a-b_cdefghi",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveVideoID(tc.url); got != tc.want {
				t.Fatalf("ResolveVideoID(%q) = %q, want %q", tc.url, got, tc.want)
			}
		})
	}
}

func TestResolveVideoIDStableAcrossCalls(t *testing.T) {
	url := "https://www.youtube.com/watch?v=abcdefghijk"
	first := ResolveVideoID(url)
	for i := 0; i < 10; i++ {
		if got := ResolveVideoID(url); got != first {
			t.Fatalf("ResolveVideoID not stable: %q then %q", first, got)
		}
	}
}

func TestResolveVideoIDSyntheticFallback(t *testing.T) {
	got := ResolveVideoID("https://example.com/not-a-video")
	if len(got) != 11 {
		t.Fatalf("synthetic id length = %d, want 11 (%q)", len(got), got)
	}
}

func TestSyntheticVideoIDLength(t *testing.T) {
	for _, ts := range []time.Time{
		time.Unix(0, 1),
		time.Unix(1700000000, 0),
		time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC),
	} {
		if got := syntheticVideoID(ts); len(got) != 11 {
			t.Fatalf("syntheticVideoID(%v) length = %d, want 11", ts, len(got))
		}
	}
}

func TestFindExistingJob(t *testing.T) {
	now := time.Now()
	completed := domain.Job{
		ID: "vid00000001_1", VideoID: "vid00000001",
		Status: domain.JobStatusCompleted, Progress: 100,
		FilePath: "/data/one.mp4", CreatedAt: now,
	}
	active := domain.Job{
		ID: "vid00000001_2", VideoID: "vid00000001",
		Status: domain.JobStatusDownloading, Progress: 40, CreatedAt: now,
	}
	failed := domain.Job{
		ID: "vid00000001_3", VideoID: "vid00000001",
		Status: domain.JobStatusError, CreatedAt: now,
	}

	exists := func(string) bool { return true }
	missing := func(string) bool { return false }

	tests := []struct {
		name    string
		jobs    []domain.Job
		exists  func(string) bool
		wantID  string
		wantHit bool
	}{
		{
			name: "completed with artifact wins over active",
			jobs: []domain.Job{active, completed}, exists: exists,
			wantID: completed.ID, wantHit: true,
		},
		{
			name: "completed without artifact loses to active",
			jobs: []domain.Job{completed, active}, exists: missing,
			wantID: active.ID, wantHit: true,
		},
		{
			name: "error jobs are never reused",
			jobs: []domain.Job{failed}, exists: exists,
			wantHit: false,
		},
		{
			name: "other video ids are ignored",
			jobs: []domain.Job{{ID: "other_1", VideoID: "other000000", Status: domain.JobStatusDownloading}},
			exists:  exists,
			wantHit: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := FindExistingJob(tc.jobs, "vid00000001", tc.exists)
			if ok != tc.wantHit {
				t.Fatalf("hit = %v, want %v", ok, tc.wantHit)
			}
			if ok && id != tc.wantID {
				t.Fatalf("id = %q, want %q", id, tc.wantID)
			}
		})
	}
}
