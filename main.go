package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"igarchive/pkg/instagram"
	"igarchive/pkg/logger"
	"igarchive/pkg/models"
	"igarchive/pkg/ratelimit"
	"igarchive/pkg/retry"
	"igarchive/pkg/storage"
)

// Minimal entrypoint: anonymous access, one traversal, no retry loop. The
// full CLI with sessions and backoff lives in cmd/igarchive.

var (
	dest     = flag.String("dest", "", "Destination directory (default: ./<username>)")
	wait     = flag.Duration("wait", 5*time.Second, "Delay between downloads")
	timeout  = flag.Duration("timeout", 30*time.Second, "HTTP timeout")
	logLevel = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "Usage: igarchive [flags] <instagram_username>")
		flag.PrintDefaults()
		os.Exit(1)
	}
	username := instagram.SanitizeUsername(strings.TrimSpace(args[0]))

	if err := logger.Initialize(logger.Options{Level: *logLevel}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := instagram.NewClient(instagram.Options{
		Timeout: *timeout,
		Pacer:   ratelimit.NewTokenBucket(12, time.Minute),
		Logger:  log,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to create client")
	}

	outputDir := *dest
	if outputDir == "" {
		outputDir = username
	}
	store, err := storage.NewManager(outputDir)
	if err != nil {
		log.WithError(err).Fatal("failed to prepare destination")
	}

	source := instagram.NewSource(client, store, instagram.SourceOptions{Logger: log})

	profile, err := source.ResolveProfile(ctx, username)
	if err != nil {
		log.WithError(err).Fatal("failed to resolve profile")
	}
	fmt.Printf("Archiving %s (%d posts) to %s\n", profile.Username, profile.MediaCount, outputDir)

	processed := 0
	it := source.Posts(profile)
	for {
		post, err := it.Next(ctx)
		if errors.Is(err, models.ErrEndOfPosts) {
			break
		}
		if err != nil {
			log.WithError(err).Error("traversal interrupted")
			break
		}

		if post.IsVideo {
			log.WithField("shortcode", post.Shortcode).Info("skipping video post")
			continue
		}

		fresh, err := source.DownloadPost(ctx, post)
		if err != nil {
			log.WithError(err).WithField("shortcode", post.Shortcode).Warn("download failed, skipping")
			continue
		}

		processed++
		fmt.Printf("saved %s (%d)\n", post.Shortcode, processed)

		if fresh {
			if err := retry.Wait(ctx, *wait); err != nil {
				break
			}
		}
	}

	fmt.Printf("Done: %d image posts archived\n", processed)
}
