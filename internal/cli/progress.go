package cli

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"github.com/mattn/go-isatty"

	"github.com/forPelevin/fillercut/internal/progress"
)

const barTemplate = `{{string . "status"}} {{bar . }} {{percent . }}`

// consumeProgress renders events until the channel closes. The returned
// channel is closed once the last event has been drawn.
func consumeProgress(events <-chan progress.Event, w io.Writer, tty bool, log *slog.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if tty {
			drawBar(events, w)
			return
		}
		logEvents(events, log)
	}()
	return done
}

func drawBar(events <-chan progress.Event, w io.Writer) {
	bar := pb.New(100)
	bar.SetWriter(w)
	bar.SetTemplateString(barTemplate)
	bar.Set("status", "Starting...")
	bar.Start()
	for ev := range events {
		bar.Set("status", ev.Status)
		bar.SetCurrent(int64(ev.Percent))
	}
	bar.Finish()
}

// logEvents logs once per status change.
func logEvents(events <-chan progress.Event, log *slog.Logger) {
	last := ""
	for ev := range events {
		if ev.Status == last {
			continue
		}
		last = ev.Status
		if strings.HasPrefix(ev.Status, "Error:") {
			// the failure itself is logged by the run
			continue
		}
		log.Info("progress", "status", ev.Status, "percent", ev.Percent)
	}
}

// clearLine returns the cursor to column 0 and erases the line.
const clearLine = "\r\x1b[K"

// terminal shares one tty between the progress bar and the logger. Log
// records erase the bar line before printing; the bar redraws itself on
// its next refresh.
type terminal struct {
	mu sync.Mutex
	w  io.Writer
}

func (t *terminal) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.w.Write(p)
}

func (t *terminal) logWriter() io.Writer { return logLines{t} }

type logLines struct{ t *terminal }

func (l logLines) Write(p []byte) (int, error) {
	l.t.mu.Lock()
	defer l.t.mu.Unlock()
	if _, err := io.WriteString(l.t.w, clearLine); err != nil {
		return 0, err
	}
	return l.t.w.Write(p)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
