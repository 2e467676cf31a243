package whispercpp

import "testing"

func TestParse_WhisperCppOffsets(t *testing.T) {
	in := `{
  "result": {"language": "en"},
  "transcription": [
    {"timestamps": {"from": "00:00:00,000", "to": "00:00:00,420"}, "offsets": {"from": 0, "to": 420}, "text": " So"},
    {"timestamps": {"from": "00:00:00,420", "to": "00:00:00,900"}, "offsets": {"from": 420, "to": 900}, "text": " um,"},
    {"offsets": {"from": 900, "to": 900}, "text": " "}
  ]
}`
	tr, err := Parse([]byte(in))
	if err != nil {
		t.Fatal(err)
	}
	if tr.Language != "en" || len(tr.Segments) != 3 {
		t.Fatalf("unexpected transcript %+v", tr)
	}
	words := tr.Words()
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %+v", words)
	}
	if words[1].Word != "um," || words[1].Start != 0.42 || words[1].End != 0.9 {
		t.Fatalf("unexpected word %+v", words[1])
	}
}

func TestParse_SegmentsLayout(t *testing.T) {
	in := `{"segments": [{"start": 0, "end": 2, "text": " hi um ", "words": [
		{"start": 0.1, "end": 0.4, "word": " hi"},
		{"start": 0.5, "end": 0.9, "text": "um"}
	]}]}`
	tr, err := Parse([]byte(in))
	if err != nil {
		t.Fatal(err)
	}
	words := tr.Words()
	if len(words) != 2 || words[0].Word != "hi" || words[1].Word != "um" {
		t.Fatalf("unexpected words %+v", words)
	}
	if tr.Segments[0].Text != "hi um" {
		t.Fatalf("segment text not trimmed: %q", tr.Segments[0].Text)
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{`{}`, `not json`} {
		if _, err := Parse([]byte(in)); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}
