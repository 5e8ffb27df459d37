package progress

import (
	"testing"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Event
		hit  bool
	}{
		{
			name: "download percentage",
			line: "[download]  42.3% of 120.00MiB at 5.20MiB/s ETA 00:13",
			want: Event{Kind: KindProgress, Percent: 42},
			hit:  true,
		},
		{
			name: "hundred percent clamps to 99",
			line: "[download] 100% of 120.00MiB in 00:25",
			want: Event{Kind: KindProgress, Percent: 99},
			hit:  true,
		},
		{
			name: "zero percent",
			line: "[download]   0.0% of 120.00MiB at Unknown speed",
			want: Event{Kind: KindProgress, Percent: 0},
			hit:  true,
		},
		{
			name: "already downloaded",
			line: "[download] /data/video.mp4 has already been downloaded",
			want: Event{Kind: KindPhase, Phase: PhaseAlreadyDownloaded},
			hit:  true,
		},
		{
			name: "merger phase",
			line: `[Merger] Merging formats into "/data/video.mp4"`,
			want: Event{Kind: KindPhase, Phase: PhaseMerging},
			hit:  true,
		},
		{
			name: "format selection phase",
			line: "[info] abcdefghijk: Downloading 1 format(s): 137+140",
			want: Event{Kind: KindPhase, Phase: PhaseSelectingFormat},
			hit:  true,
		},
		{
			name: "video unavailable",
			line: "ERROR: [youtube] abcdefghijk: Video unavailable",
			want: Event{Kind: KindFatal, Message: "video unavailable"},
			hit:  true,
		},
		{
			name: "private video",
			line: "ERROR: [youtube] abcdefghijk: Private video. Sign in if you've been granted access to this video",
			want: Event{Kind: KindFatal, Message: "private video"},
			hit:  true,
		},
		{
			name: "age gated",
			line: "ERROR: Sign in to confirm your age. This video may be inappropriate for some users.",
			want: Event{Kind: KindFatal, Message: "video is age-restricted"},
			hit:  true,
		},
		{
			name: "region blocked",
			line: "ERROR: The uploader has not made this video available in your country",
			want: Event{Kind: KindFatal, Message: "video is blocked in this region"},
			hit:  true,
		},
		{
			name: "removed",
			line: "ERROR: This video has been removed by the uploader",
			want: Event{Kind: KindFatal, Message: "video was removed"},
			hit:  true,
		},
		{
			name: "unrecognized line",
			line: "[youtube] abcdefghijk: Downloading webpage",
			hit:  false,
		},
		{
			name: "empty line",
			line: "",
			hit:  false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Match(tc.line)
			if ok != tc.hit {
				t.Fatalf("Match(%q) hit = %v, want %v", tc.line, ok, tc.hit)
			}
			if ok && got != tc.want {
				t.Fatalf("Match(%q) = %+v, want %+v", tc.line, got, tc.want)
			}
		})
	}
}

func TestParserBuffersPartialLines(t *testing.T) {
	var events []Event
	p := NewParser(func(ev Event) { events = append(events, ev) }, nil)

	// One progress line delivered in three chunks.
	chunks := []string{"[download]  ", "17.0% of 10.00MiB", " at 1.00MiB/s\n"}
	for _, c := range chunks {
		if _, err := p.Write([]byte(c)); err != nil {
			t.Fatalf("Write error: %v", err)
		}
		if len(events) != 0 && c != chunks[len(chunks)-1] {
			t.Fatalf("event emitted before line terminator: %+v", events)
		}
	}
	if len(events) != 1 || events[0].Percent != 17 {
		t.Fatalf("events = %+v, want one 17%% progress event", events)
	}
}

func TestParserHandlesCarriageReturns(t *testing.T) {
	var events []Event
	p := NewParser(func(ev Event) { events = append(events, ev) }, nil)

	// yt-dlp rewrites the progress line with \r instead of \n.
	input := "[download]  10.0% of 10MiB\r[download]  25.0% of 10MiB\r[download]  50.0% of 10MiB\n"
	if _, err := p.Write([]byte(input)); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3: %+v", len(events), events)
	}
	for i, want := range []int{10, 25, 50} {
		if events[i].Percent != want {
			t.Fatalf("event %d percent = %d, want %d", i, events[i].Percent, want)
		}
	}
}

func TestParserFlushParsesTrailingLine(t *testing.T) {
	var events []Event
	p := NewParser(func(ev Event) { events = append(events, ev) }, nil)

	if _, err := p.Write([]byte("ERROR: Video unavailable")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("unterminated line parsed early: %+v", events)
	}
	p.Flush()
	if len(events) != 1 || events[0].Kind != KindFatal {
		t.Fatalf("Flush events = %+v, want one fatal", events)
	}
}

func TestParserReportsUnrecognizedLines(t *testing.T) {
	var unrec []string
	p := NewParser(func(Event) {}, func(line string) { unrec = append(unrec, line) })

	if _, err := p.Write([]byte("[youtube] abcdefghijk: Downloading webpage\n")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if len(unrec) != 1 {
		t.Fatalf("unrecognized lines = %v, want 1 entry", unrec)
	}
}
