package domain

import (
	"fmt"
	"time"
)

// JobStatus enumerates download job lifecycle states.
type JobStatus string

const (
	JobStatusQueued      JobStatus = "queued"
	JobStatusProcessing  JobStatus = "processing"
	JobStatusDownloading JobStatus = "downloading"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusError       JobStatus = "error"
)

// Job tracks one download attempt for a piece of content. Records move
// around by value: every update replaces the whole record in the store, so
// a concurrent reader never observes a half-written job.
type Job struct {
	ID        string
	VideoID   string
	Status    JobStatus
	Progress  int
	Title     string
	Message   string
	FilePath  string
	SourceURL string
	Quality   string
	Playlist  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether a worker is (or should be) driving this job.
func (j Job) Active() bool {
	return j.Status == JobStatusProcessing || j.Status == JobStatusDownloading
}

// NewJobID builds the job identifier. The video id prefix keeps prefix
// lookups working; the timestamp keeps ids unique across re-downloads of
// the same video.
func NewJobID(videoID string, playlist bool, now time.Time) string {
	if playlist {
		return fmt.Sprintf("playlist_%s_%d", videoID, now.UnixMilli())
	}
	return fmt.Sprintf("%s_%d", videoID, now.UnixMilli())
}
