package whispercpp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/fillercut/internal/types"
)

type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath}
}

// Transcribe runs whisper.cpp with one token per segment (-ml 1 -sow) so
// every segment carries word-level offsets.
func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	outPrefix := filepath.Join(cacheDir, "whisper")
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
		"-ml", "1",
		"-sow",
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}
	return Parse(jb)
}

type cppOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
	Segments []types.Segment `json:"segments"`
}

// Parse decodes whisper.cpp JSON output. The segments/words layout written
// by openai-whisper and whisperx is accepted too.
func Parse(b []byte) (types.Transcript, error) {
	var raw cppOutput
	if err := json.Unmarshal(b, &raw); err != nil {
		return types.Transcript{}, fmt.Errorf("parse transcript: %w", err)
	}

	var tr types.Transcript
	switch {
	case len(raw.Transcription) > 0:
		tr.Language = raw.Result.Language
		for _, e := range raw.Transcription {
			text := strings.TrimSpace(e.Text)
			start := float64(e.Offsets.From) / 1000
			end := float64(e.Offsets.To) / 1000
			seg := types.Segment{Start: start, End: end, Text: text}
			if text != "" {
				seg.Words = []types.Word{{Start: start, End: end, Word: text}}
			}
			tr.Segments = append(tr.Segments, seg)
		}
	case raw.Segments != nil:
		tr.Segments = raw.Segments
	default:
		return types.Transcript{}, errors.New("parse transcript: no transcription or segments")
	}

	for i := range tr.Segments {
		tr.Segments[i].Text = strings.TrimSpace(tr.Segments[i].Text)
		for j := range tr.Segments[i].Words {
			tr.Segments[i].Words[j].Word = strings.TrimSpace(tr.Segments[i].Words[j].Word)
		}
	}
	return tr, nil
}
