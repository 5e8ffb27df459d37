package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mediafetch/internal/domain"
	"mediafetch/internal/identity"
	"mediafetch/internal/progress"
	"mediafetch/internal/storage"
	"mediafetch/internal/store"
	"mediafetch/internal/ytdlp"
)

// Downloader is the subprocess supervisor surface the controller drives.
// *ytdlp.Runner satisfies it; tests substitute a fake.
type Downloader interface {
	Download(ctx context.Context, req ytdlp.Request, stdout, stderr io.Writer) error
	ListFormats(ctx context.Context, url string) ([]string, error)
	Title(ctx context.Context, url string) (string, error)
	ProbeHeight(ctx context.Context, path string) (int, error)
}

// Options tune the retry policy. Zero values take the documented defaults:
// 3 attempts with 5s/10s backoff between them.
type Options struct {
	MaxAttempts int
	Backoff     time.Duration

	// Sleep and Now are injectable for tests; nil means real clock.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// Controller owns the job state machine. One goroutine per active job
// drives the subprocess; any number of pollers read the store concurrently.
type Controller struct {
	store     *store.Store
	artifacts *storage.Artifacts
	dl        Downloader
	logger    zerolog.Logger

	maxAttempts int
	backoff     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time

	mu     sync.Mutex
	active map[string]context.CancelFunc
	wg     sync.WaitGroup
}

// New wires the controller. All collaborators are injected; the controller
// holds no process-wide state.
func New(s *store.Store, artifacts *storage.Artifacts, dl Downloader, logger zerolog.Logger, opts Options) *Controller {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 5 * time.Second
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		store:       s,
		artifacts:   artifacts,
		dl:          dl,
		logger:      logger,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		sleep:       opts.Sleep,
		now:         opts.Now,
		active:      make(map[string]context.CancelFunc),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Enqueue accepts a download request and returns a job id promptly. An
// equivalent job already completed (artifact present) or in flight is
// returned instead of creating a duplicate; the lock around lookup+create
// makes the dedup hold for concurrent requests too.
func (c *Controller) Enqueue(url, quality string, playlist bool) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", domain.ErrInvalidURL
	}
	videoID := identity.ResolveVideoID(url)

	c.mu.Lock()
	defer c.mu.Unlock()

	if jobID, ok := identity.FindExistingJob(c.store.List(), videoID, c.artifacts.Exists); ok {
		c.logger.Info().Str("video_id", videoID).Str("job_id", jobID).Msg("reusing existing job")
		return jobID, nil
	}
	// A freshly created job is still queued for a moment before its
	// goroutine marks it processing; it has a driver, so reuse it too.
	for _, rec := range c.store.List() {
		if rec.VideoID == videoID {
			if _, driven := c.active[rec.ID]; driven {
				c.logger.Info().Str("video_id", videoID).Str("job_id", rec.ID).Msg("reusing in-flight job")
				return rec.ID, nil
			}
		}
	}

	now := c.now()
	job := domain.Job{
		ID:        domain.NewJobID(videoID, playlist, now),
		VideoID:   videoID,
		Status:    domain.JobStatusQueued,
		Message:   "queued",
		SourceURL: url,
		Quality:   quality,
		Playlist:  playlist,
		CreatedAt: now,
		UpdatedAt: now,
	}
	c.store.Put(job)

	ctx, cancel := context.WithCancel(context.Background())
	c.active[job.ID] = cancel
	c.wg.Add(1)
	go c.run(ctx, job)

	c.logger.Info().Str("video_id", videoID).Str("job_id", job.ID).Bool("playlist", playlist).Msg("job created")
	return job.ID, nil
}

// run drives a single job from queued to a terminal state.
func (c *Controller) run(ctx context.Context, job domain.Job) {
	defer c.wg.Done()
	defer c.release(job.ID)

	log := c.logger.With().Str("job_id", job.ID).Str("video_id", job.VideoID).Logger()

	c.store.Update(job.ID, func(j *domain.Job) {
		j.Status = domain.JobStatusProcessing
		j.Message = "resolving title"
	})

	title, err := c.dl.Title(ctx, job.SourceURL)
	if err != nil {
		log.Debug().Err(err).Msg("title resolution failed, using video id")
		title = job.VideoID
	}
	dest := c.artifacts.DestinationPath(title, job.VideoID, job.Playlist, job.CreatedAt)
	if job.Playlist {
		if err := c.artifacts.EnsurePlaylistDir(dest); err != nil {
			c.fail(job.ID, "could not prepare download directory")
			log.Error().Err(err).Str("path", dest).Msg("playlist directory creation failed")
			return
		}
	}

	c.store.Update(job.ID, func(j *domain.Job) {
		j.Title = title
		j.FilePath = dest
		j.Message = "starting download"
	})

	var fatalMu sync.Mutex
	var fatalMsg string
	parser := progress.NewParser(
		func(ev progress.Event) {
			switch ev.Kind {
			case progress.KindProgress:
				c.applyProgress(job.ID, ev.Percent)
			case progress.KindPhase:
				c.store.Update(job.ID, func(j *domain.Job) { j.Message = ev.Phase })
			case progress.KindFatal:
				fatalMu.Lock()
				if fatalMsg == "" {
					fatalMsg = ev.Message
				}
				fatalMu.Unlock()
			}
		},
		func(line string) { log.Debug().Str("line", line).Msg("downloader output") },
	)

	req := ytdlp.Request{URL: job.SourceURL, Quality: job.Quality, OutputPath: dest, Playlist: job.Playlist}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		lastErr = c.dl.Download(ctx, req, parser, parser)
		parser.Flush()
		if lastErr == nil {
			c.finishSuccess(ctx, job, dest, log)
			return
		}

		fatalMu.Lock()
		fm := fatalMsg
		fatalMu.Unlock()
		if fm != "" {
			// Content unavailable, age-gated, region-blocked or removed:
			// retrying cannot help.
			c.fail(job.ID, fm)
			log.Warn().Str("reason", fm).Msg("download failed permanently")
			return
		}
		if ctx.Err() == context.Canceled {
			log.Info().Msg("job cancelled")
			return
		}

		log.Warn().Err(lastErr).Int("attempt", attempt).Msg("download attempt failed")
		if attempt == c.maxAttempts {
			break
		}
		delay := c.backoff << (attempt - 1)
		c.store.Update(job.ID, func(j *domain.Job) {
			j.Message = fmt.Sprintf("retrying in %s (attempt %d of %d failed)", delay, attempt, c.maxAttempts)
		})
		if err := c.sleep(ctx, delay); err != nil {
			log.Info().Msg("job cancelled during backoff")
			return
		}
	}

	c.fail(job.ID, failureMessage(lastErr))
	log.Error().Err(lastErr).Msg("download failed after all attempts")
}

// applyProgress folds a percentage into the record. First progress flips
// the job from processing to downloading; values never go backwards.
func (c *Controller) applyProgress(jobID string, pct int) {
	c.store.Update(jobID, func(j *domain.Job) {
		if j.Status == domain.JobStatusProcessing || j.Status == domain.JobStatusQueued {
			j.Status = domain.JobStatusDownloading
		}
		if j.Status != domain.JobStatusDownloading {
			return
		}
		if pct > j.Progress {
			j.Progress = pct
		}
		j.Message = fmt.Sprintf("downloading %d%%", j.Progress)
	})
}

// finishSuccess verifies the artifact and closes the job out. The quality
// check is informational: a mismatch goes into the message, never into the
// success/failure classification.
func (c *Controller) finishSuccess(ctx context.Context, job domain.Job, dest string, log zerolog.Logger) {
	if !c.artifacts.Exists(dest) {
		c.fail(job.ID, "downloader reported success but no artifact was written")
		log.Error().Str("path", dest).Msg("artifact missing after successful exit")
		return
	}

	msg := "download complete"
	if !job.Playlist {
		if height, err := c.dl.ProbeHeight(ctx, dest); err == nil {
			msg = qualityMessage(job.Quality, height)
		} else {
			log.Debug().Err(err).Msg("quality verification skipped")
		}
	}

	c.store.Update(job.ID, func(j *domain.Job) {
		j.Status = domain.JobStatusCompleted
		j.Progress = 100
		j.Message = msg
	})
	log.Info().Msg("job completed")
}

func (c *Controller) fail(jobID, msg string) {
	c.store.Update(jobID, func(j *domain.Job) {
		j.Status = domain.JobStatusError
		j.Message = msg
	})
}

func (c *Controller) release(jobID string) {
	c.mu.Lock()
	if cancel, ok := c.active[jobID]; ok {
		cancel()
		delete(c.active, jobID)
	}
	c.mu.Unlock()
}

func qualityMessage(requested string, height int) string {
	if requested == "" || requested == "best" {
		return fmt.Sprintf("download complete (%dp)", height)
	}
	if fmt.Sprintf("%dp", height) == requested {
		return fmt.Sprintf("download complete (%s as requested)", requested)
	}
	return fmt.Sprintf("download complete (%s requested, %dp delivered)", requested, height)
}

// failureMessage trims a wrapped subprocess error down to something a
// client can display.
func failureMessage(err error) string {
	if err == nil {
		return "download failed"
	}
	if errors.Is(err, ytdlp.ErrTimeout) {
		return "download timed out"
	}
	msg := err.Error()
	if len(msg) > 300 {
		msg = msg[:300]
	}
	return msg
}
