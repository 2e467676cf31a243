package pipeline

import (
	"fmt"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/forPelevin/fillercut/internal/progress"
)

// writePreviews drains frames into dir as cut_NNN_<ms>ms.jpg files until the
// channel closes and returns how many were written.
func writePreviews(dir string, frames <-chan progress.Frame, log *slog.Logger) int {
	n := 0
	for f := range frames {
		path := filepath.Join(dir, previewName(f))
		if err := writeJPEG(path, f); err != nil {
			log.Warn("preview write failed", "path", path, "error", err)
			continue
		}
		n++
	}
	return n
}

func previewName(f progress.Frame) string {
	return fmt.Sprintf("cut_%03d_%dms.jpg", f.Index, f.At/time.Millisecond)
}

func writeJPEG(path string, f progress.Frame) error {
	if f.Image == nil {
		return fmt.Errorf("frame %d has no image", f.Index)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(file, f.Image, &jpeg.Options{Quality: 85}); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
