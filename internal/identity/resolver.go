package identity

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"mediafetch/internal/domain"
)

// videoIDPatterns covers the URL shapes the mobile client sends: standard
// watch links, short links, embed/shorts/live paths, and bare v= query
// parameters. Ordered; first capture wins.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com|youtube-nocookie\.com)/(?:watch\?(?:[^#]*&)?v=|embed/|shorts/|live/|v/)([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`[?&]v=([A-Za-z0-9_-]{11})`),
}

// ResolveVideoID extracts the stable 11-character platform id from a URL.
// Unparseable URLs get a synthetic timestamp-based id so the pipeline never
// rejects a request outright; dedup is lost for those, which is acceptable.
func ResolveVideoID(rawURL string) string {
	url := strings.TrimSpace(rawURL)
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(url); len(m) > 1 {
			return m[1]
		}
	}
	return syntheticVideoID(time.Now())
}

// syntheticVideoID derives an 11-character placeholder from the clock.
// Matching the platform id length keeps job-id prefix lookups uniform.
func syntheticVideoID(now time.Time) string {
	id := strconv.FormatInt(now.UnixNano(), 36)
	if len(id) > 11 {
		return id[len(id)-11:]
	}
	return strings.Repeat("0", 11-len(id)) + id
}

// FindExistingJob decides whether a new request for videoID can be answered
// with an existing job. A completed job whose artifact is still on disk wins
// over everything; an in-flight job is reused so concurrent requests share
// one subprocess; otherwise the caller must create a fresh job.
func FindExistingJob(jobs []domain.Job, videoID string, artifactExists func(string) bool) (string, bool) {
	var active string
	for _, job := range jobs {
		if job.VideoID != videoID {
			continue
		}
		if job.Status == domain.JobStatusCompleted && job.Progress == 100 &&
			job.FilePath != "" && artifactExists(job.FilePath) {
			return job.ID, true
		}
		if active == "" && job.Active() {
			active = job.ID
		}
	}
	if active != "" {
		return active, true
	}
	return "", false
}
