package controller

import (
	"context"
	"strings"

	"mediafetch/internal/domain"
	"mediafetch/internal/storage"
)

// Get resolves a job by full id, video-id prefix, or video id, applying
// read-repair: a completed record whose artifact has disappeared reverts to
// queued with progress reset, so the client knows to re-download. Stale
// state is corrected at read time, never papered over with a substitute.
func (c *Controller) Get(id string) (domain.Job, error) {
	job, err := c.store.Resolve(id)
	if err != nil {
		return domain.Job{}, err
	}
	return c.repair(job), nil
}

// List returns all job records, newest first, each read-repaired.
func (c *Controller) List() []domain.Job {
	jobs := c.store.List()
	for i, job := range jobs {
		jobs[i] = c.repair(job)
	}
	return jobs
}

// Check reports whether a job's artifact exists on disk. Missing artifacts
// trigger the same read-repair as Get.
func (c *Controller) Check(id string) (bool, string, error) {
	job, err := c.store.Resolve(id)
	if err != nil {
		return false, "", err
	}
	job = c.repair(job)
	if job.Status == domain.JobStatusCompleted && c.artifacts.Exists(job.FilePath) {
		return true, "", nil
	}
	switch job.Status {
	case domain.JobStatusError:
		return false, "download failed", nil
	case domain.JobStatusQueued:
		return false, "file missing, re-download required", nil
	default:
		return false, "download in progress", nil
	}
}

// ArtifactPath returns the on-disk path for serving a completed job's
// artifact. A missing artifact repairs the record and reports
// domain.ErrArtifactMissing so the transport can flag re-download.
func (c *Controller) ArtifactPath(id string) (string, domain.Job, error) {
	job, err := c.store.Resolve(id)
	if err != nil {
		return "", domain.Job{}, err
	}
	job = c.repair(job)
	if job.Status != domain.JobStatusCompleted || !c.artifacts.Exists(job.FilePath) {
		return "", job, domain.ErrArtifactMissing
	}
	return job.FilePath, job, nil
}

// Playlist enumerates the files inside a playlist job's directory.
func (c *Controller) Playlist(id string) ([]storage.PlaylistEntry, error) {
	job, err := c.store.Resolve(id)
	if err != nil {
		return nil, err
	}
	if !job.Playlist || job.FilePath == "" {
		return nil, domain.ErrNotFound
	}
	return c.artifacts.ListPlaylist(job.FilePath)
}

// PlaylistFile resolves one file of a playlist job by index.
func (c *Controller) PlaylistFile(id string, index int) (string, error) {
	job, err := c.store.Resolve(id)
	if err != nil {
		return "", err
	}
	if !job.Playlist || job.FilePath == "" {
		return "", domain.ErrNotFound
	}
	return c.artifacts.PlaylistFile(job.FilePath, index)
}

// Formats lists the raw format lines the downloader reports for a URL.
// Read-only; no job record is created.
func (c *Controller) Formats(ctx context.Context, url string) ([]string, error) {
	if strings.TrimSpace(url) == "" {
		return nil, domain.ErrInvalidURL
	}
	return c.dl.ListFormats(ctx, url)
}

// Delete removes a download by video identity: the newest matching job's
// artifact is deleted (recursively for playlists) and every record sharing
// the video id is dropped. An active subprocess is terminated first so it
// cannot keep writing into the deleted path. Artifact removal failures are
// logged but never block the record cleanup.
func (c *Controller) Delete(id string) error {
	job, err := c.store.Resolve(id)
	if err != nil {
		return err
	}
	newest, ok := c.store.FindByVideoID(job.VideoID)
	if !ok {
		newest = job
	}

	c.mu.Lock()
	for _, rec := range c.store.List() {
		if rec.VideoID == job.VideoID {
			if cancel, found := c.active[rec.ID]; found {
				cancel()
				delete(c.active, rec.ID)
			}
		}
	}
	c.mu.Unlock()

	if newest.FilePath != "" {
		if err := c.artifacts.Remove(newest.FilePath); err != nil {
			c.logger.Warn().Err(err).Str("job_id", newest.ID).Str("path", newest.FilePath).Msg("artifact removal failed")
		}
	}

	removed := c.store.DeleteByVideoID(job.VideoID)
	c.logger.Info().Str("video_id", job.VideoID).Int("records", removed).Msg("download deleted")
	return nil
}

// Shutdown cancels every active job and waits for their goroutines.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	for id, cancel := range c.active {
		cancel()
		delete(c.active, id)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// repair enforces the artifact invariant at read time.
func (c *Controller) repair(job domain.Job) domain.Job {
	if job.Status != domain.JobStatusCompleted {
		return job
	}
	if c.artifacts.Exists(job.FilePath) {
		return job
	}
	repaired, ok := c.store.Update(job.ID, func(j *domain.Job) {
		j.Status = domain.JobStatusQueued
		j.Progress = 0
		j.Message = "file missing, re-download required"
	})
	if !ok {
		return job
	}
	return repaired
}
