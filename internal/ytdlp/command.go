package ytdlp

import (
	"path/filepath"
	"strconv"
)

// Request describes one download invocation.
type Request struct {
	URL        string
	Quality    string
	OutputPath string
	Playlist   bool
}

// tierHeights maps the quality tiers the mobile client may request to the
// maximum encoded height passed to the format selector.
var tierHeights = map[string]int{
	"1080p": 1080,
	"720p":  720,
	"540p":  540,
	"480p":  480,
	"360p":  360,
}

// FormatSelector maps a quality tier to a yt-dlp format expression: an mp4
// video+m4a audio pair capped at the tier height, then any pair at that
// height, then whatever is best. Unknown tiers fall back to the generic
// best-effort chain.
func FormatSelector(quality string) string {
	h, ok := tierHeights[quality]
	if !ok {
		return "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/bv*+ba/b"
	}
	hs := strconv.Itoa(h)
	return "bv*[height<=" + hs + "][ext=mp4]+ba[ext=m4a]" +
		"/b[height<=" + hs + "][ext=mp4]" +
		"/bv*[height<=" + hs + "]+ba" +
		"/b[height<=" + hs + "]/b"
}

// BuildArgs assembles the downloader argument list. Partial files are
// suppressed and streams always merge into a single mp4 container; playlist
// jobs expand into the output directory with index-prefixed names.
func BuildArgs(req Request) []string {
	args := []string{
		"-f", FormatSelector(req.Quality),
		"--merge-output-format", "mp4",
		"--no-part",
		"--newline",
	}
	if req.Playlist {
		args = append(args,
			"--yes-playlist",
			"-o", filepath.Join(req.OutputPath, "%(playlist_index)03d_%(title)s.%(ext)s"),
		)
	} else {
		args = append(args,
			"--no-playlist",
			"-o", req.OutputPath,
		)
	}
	return append(args, req.URL)
}
