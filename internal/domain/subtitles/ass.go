package subtitles

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/fillercut/internal/domain/cuts"
	"github.com/forPelevin/fillercut/internal/types"
)

// RenderTrimmedASS renders karaoke subtitles for the output of tl. Filler
// words and words that fall inside a cut are dropped; the rest are moved
// onto the output timeline.
func RenderTrimmedASS(tr types.Transcript, tl cuts.Timeline, fillers cuts.Vocabulary) (string, error) {
	words := collectKeptWords(tr, tl, fillers)
	if len(words) == 0 {
		return "", ErrNoWords
	}
	return renderASSKaraoke(packWords(words)), nil
}

var ErrNoWords = errors.New("no transcript words survive the cut")

type wword struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

type line struct {
	Start time.Duration
	End   time.Duration
	Words []wword
}

func collectKeptWords(tr types.Transcript, tl cuts.Timeline, fillers cuts.Vocabulary) []wword {
	var out []wword
	for _, s := range tr.Segments {
		for _, w := range s.Words {
			text := strings.TrimSpace(w.Word)
			if text == "" || fillers.Contains(text) {
				continue
			}
			src := types.Range{Start: types.Seconds(w.Start), End: types.Seconds(w.End)}
			if src.Empty() {
				continue
			}
			dst, ok := tl.Clip(src)
			if !ok || dst.Empty() {
				continue
			}
			out = append(out, wword{Start: dst.Start, End: dst.End, Text: sanitizeASS(text)})
		}
	}
	return out
}

const (
	lineChars = 42
	lineWords = 9
)

func packWords(words []wword) []line {
	var out []line
	cur := line{Start: words[0].Start}
	curLen := 0
	for i, w := range words {
		wl := len([]rune(w.Text))
		nextLen := curLen
		if curLen > 0 {
			nextLen++
		}
		nextLen += wl
		if len(cur.Words) >= lineWords || nextLen > lineChars {
			cur.End = cur.Words[len(cur.Words)-1].End
			out = append(out, cur)
			cur = line{Start: w.Start}
			curLen = 0
		}
		cur.Words = append(cur.Words, w)
		if curLen > 0 {
			curLen++
		}
		curLen += wl
		if i == len(words)-1 {
			cur.End = w.End
			out = append(out, cur)
		}
	}
	return out
}

func renderASSKaraoke(lines []line) string {
	var b strings.Builder
	b.WriteString(assHeader())
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, ln := range lines {
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(ln.Start))
		b.WriteString(",")
		b.WriteString(assTime(ln.End))
		b.WriteString(",Default,,0,0,0,,")
		for _, w := range ln.Words {
			durCS := int((w.End - w.Start) / (10 * time.Millisecond))
			if durCS < 1 {
				durCS = 1
			}
			b.WriteString(fmt.Sprintf("{\\k%d}%s ", durCS, w.Text))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func assHeader() string {
	return strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: 1920
PlayResY: 1080
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Default, Arial, 56, &H00FFFFFF, &H0000D2FF, &H00000000, &H64000000, 0,0,0,0,100,100,0,0,1,3,1,2, 60,60,50,1
`)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}
