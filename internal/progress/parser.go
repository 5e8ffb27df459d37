package progress

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Kind classifies a recognized output line.
type Kind int

const (
	// KindProgress carries a percentage update.
	KindProgress Kind = iota
	// KindPhase marks a non-download phase of the run.
	KindPhase
	// KindFatal marks a content-availability failure retrying cannot fix.
	KindFatal
)

// Event is one structured observation parsed from downloader output.
type Event struct {
	Kind    Kind
	Percent int    // KindProgress
	Phase   string // KindPhase
	Message string // KindFatal
}

// Phase names surfaced on the job message while a download runs.
const (
	PhaseSelectingFormat   = "selecting format"
	PhaseMerging           = "merging streams"
	PhaseAlreadyDownloaded = "already downloaded"
)

type rule struct {
	re    *regexp.Regexp
	build func(m []string) (Event, bool)
}

// rules is the ordered matcher table. New patterns are added here, not in
// control flow. Fatal markers come first so an error line that happens to
// contain a percentage is not misread as progress.
var rules = []rule{
	{regexp.MustCompile(`(?i)\bprivate video\b`), fatal("private video")},
	{regexp.MustCompile(`(?i)video unavailable`), fatal("video unavailable")},
	{regexp.MustCompile(`(?i)sign in to confirm your age|age[- ]restricted`), fatal("video is age-restricted")},
	{regexp.MustCompile(`(?i)available in your country|geo[- ]?restricted`), fatal("video is blocked in this region")},
	{regexp.MustCompile(`(?i)removed by the uploader|has been removed`), fatal("video was removed")},
	{regexp.MustCompile(`^\[download\]\s+([0-9]+(?:\.[0-9]+)?)%`), buildPercent},
	{regexp.MustCompile(`has already been downloaded`), phase(PhaseAlreadyDownloaded)},
	{regexp.MustCompile(`^\[Merger\]`), phase(PhaseMerging)},
	{regexp.MustCompile(`^\[info\].*[Dd]ownloading \d+ format`), phase(PhaseSelectingFormat)},
}

func fatal(msg string) func([]string) (Event, bool) {
	return func([]string) (Event, bool) {
		return Event{Kind: KindFatal, Message: msg}, true
	}
}

func phase(name string) func([]string) (Event, bool) {
	return func([]string) (Event, bool) {
		return Event{Kind: KindPhase, Phase: name}, true
	}
}

// buildPercent clamps reported percentages to 99. The value 100 belongs to
// the lifecycle controller, which only grants it after a verified exit.
func buildPercent(m []string) (Event, bool) {
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Event{}, false
	}
	p := int(pct)
	if p < 0 {
		p = 0
	}
	if p > 99 {
		p = 99
	}
	return Event{Kind: KindProgress, Percent: p}, true
}

// Match runs a single line through the rule table.
func Match(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Event{}, false
	}
	for _, r := range rules {
		if m := r.re.FindStringSubmatch(line); m != nil {
			return r.build(m)
		}
	}
	return Event{}, false
}

// Parser turns a raw downloader output stream into events. It implements
// io.Writer so process pipes can be copied straight into it; partial lines
// split across chunks are buffered until a terminator arrives. yt-dlp
// rewrites its progress line with carriage returns, so CR terminates a line
// just like LF.
type Parser struct {
	mu    sync.Mutex
	buf   []byte
	emit  func(Event)
	unrec func(string)
}

// NewParser builds a parser delivering events to emit. unrecognized, if
// non-nil, receives lines no rule matched (diagnostic logging only).
func NewParser(emit func(Event), unrecognized func(string)) *Parser {
	return &Parser{emit: emit, unrec: unrecognized}
}

func (p *Parser) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf = append(p.buf, b...)
	for {
		i := strings.IndexAny(string(p.buf), "\r\n")
		if i < 0 {
			return len(b), nil
		}
		line := string(p.buf[:i])
		p.buf = p.buf[i+1:]
		p.line(line)
	}
}

// Flush parses whatever is buffered as a final, unterminated line.
func (p *Parser) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.buf) > 0 {
		p.line(string(p.buf))
		p.buf = nil
	}
}

func (p *Parser) line(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if ev, ok := Match(line); ok {
		p.emit(ev)
		return
	}
	if p.unrec != nil {
		p.unrec(line)
	}
}
