package progress

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/deedscan/internal/model"
)

// NewBarSink renders progress events as a terminal progress bar on w.
func NewBarSink(w io.Writer, title string) Sink {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan][bold]%s[reset]", title)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)

	var mu sync.Mutex
	return func(step model.Step, percent int, message string) {
		mu.Lock()
		defer mu.Unlock()

		bar.Describe(fmt.Sprintf("[cyan][bold]%s[reset] %s", title, message))
		if err := bar.Set(clamp(percent)); err != nil {
			slog.Warn("Failed to update progress bar", "error", err, "step", step)
		}
	}
}

func clamp(percent int) int {
	switch {
	case percent < 0:
		return 0
	case percent > 100:
		return 100
	default:
		return percent
	}
}
