package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrTimeout reports that an attempt exceeded the wall-clock limit and the
// subprocess was terminated.
var ErrTimeout = errors.New("download timed out")

// Runner launches and supervises the external downloader. One Runner is
// shared by all jobs; each call owns its own subprocess.
type Runner struct {
	binPath     string
	ffprobePath string
	timeout     time.Duration
	logger      zerolog.Logger
}

// NewRunner configures a supervisor for the downloader at binPath with a
// per-attempt wall-clock timeout.
func NewRunner(binPath, ffprobePath string, timeout time.Duration, logger zerolog.Logger) *Runner {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 600 * time.Second
	}
	return &Runner{binPath: binPath, ffprobePath: ffprobePath, timeout: timeout, logger: logger}
}

// Download runs one attempt. Both process streams are copied into the
// provided writers as they arrive so the caller can parse progress while
// the subprocess runs. The attempt is bounded by the runner timeout; the
// context also cancels it, which kills the subprocess (no orphans writing
// into a deleted path). Returns ErrTimeout, a nonzero-exit error carrying
// the stderr tail, or nil.
func (r *Runner) Download(ctx context.Context, req Request, stdout, stderr io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := BuildArgs(req)
	cmd := exec.CommandContext(ctx, r.binPath, args...)

	outPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	errPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", r.binPath, err)
	}
	r.logger.Debug().Str("bin", r.binPath).Strs("args", args).Msg("downloader started")

	tail := newTailBuffer(4096)
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(stdout, outPipe)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(io.MultiWriter(stderr, tail), errPipe)
		return err
	})
	copyErr := g.Wait()

	waitErr := cmd.Wait()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w after %s", ErrTimeout, r.timeout)
	}
	if waitErr != nil {
		return fmt.Errorf("downloader exited: %w: %s", waitErr, tail.String())
	}
	if copyErr != nil {
		return fmt.Errorf("read downloader output: %w", copyErr)
	}
	return nil
}

// ListFormats runs the downloader in listing mode and returns the raw
// format description lines for display. No job record is involved.
func (r *Runner) ListFormats(ctx context.Context, url string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binPath, "-F", "--no-playlist", url)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("list formats: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if line := strings.TrimRight(sc.Text(), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// Title resolves the display title of the content. Best effort: callers
// fall back to a placeholder when it fails.
func (r *Runner) Title(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.binPath, "--get-title", "--no-playlist", "--skip-download", url)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("resolve title: %w", err)
	}
	title := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	if title == "" {
		return "", errors.New("resolve title: empty output")
	}
	return title, nil
}

// ProbeHeight asks ffprobe for the encoded height of the artifact. Used for
// the informational post-download quality check only.
func (r *Runner) ProbeHeight(ctx context.Context, path string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=height",
		"-of", "csv=p=0",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("probe height: %w", err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0]))
	if err != nil {
		return 0, fmt.Errorf("probe height: parse %q: %w", strings.TrimSpace(string(out)), err)
	}
	return h, nil
}

// tailBuffer keeps the last max bytes written, so error messages carry the
// end of stderr rather than the beginning.
type tailBuffer struct {
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(string(t.buf))
}
