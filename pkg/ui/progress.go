package ui

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// NewPostBar creates a progress bar over a profile's estimated post count.
// A non-positive total produces a spinner.
func NewPostBar(total int, username string) *progressbar.ProgressBar {
	if total <= 0 {
		total = -1
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stdout),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(15),
		progressbar.OptionSetDescription(fmt.Sprintf("[cyan]Archiving: %s[reset]", username)),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

// Countdown blocks for the given delay, printing the remaining time once a
// second. It returns early with the context error on cancellation. Progress
// is fully gated on the delay: nothing else runs during the pause.
func Countdown(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	remaining := delay.Round(time.Second)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	deadline := time.Now().Add(delay)
	for {
		if !Quiet {
			fmt.Printf("\r%s", Yellow(fmt.Sprintf("Backing off, retrying in %s ", remaining)))
		}
		select {
		case <-ticker.C:
			remaining = time.Until(deadline).Round(time.Second)
			if remaining <= 0 {
				if !Quiet {
					fmt.Print("\r\033[K")
				}
				return nil
			}
		case <-ctx.Done():
			if !Quiet {
				fmt.Print("\r\033[K")
			}
			return ctx.Err()
		}
	}
}
