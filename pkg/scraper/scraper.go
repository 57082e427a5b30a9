package scraper

import (
	"context"
	stderrors "errors"
	"time"

	"igarchive/pkg/errors"
	"igarchive/pkg/logger"
	"igarchive/pkg/models"
	"igarchive/pkg/ratelimit"
	"igarchive/pkg/retry"
)

// StopReason says how a run ended.
type StopReason int

const (
	// ReasonCompleted means a traversal finished without an iteration error.
	ReasonCompleted StopReason = iota
	// ReasonNotFound means the profile or its content disappeared.
	ReasonNotFound
	// ReasonFatal means an unclassified error aborted the run.
	ReasonFatal
	// ReasonStalled means the stall guard fired: no progress in a full
	// traversal attempt with the backoff schedule already exhausted.
	ReasonStalled
	// ReasonInterrupted means the operator cancelled the run.
	ReasonInterrupted
)

func (r StopReason) String() string {
	switch r {
	case ReasonCompleted:
		return "completed"
	case ReasonNotFound:
		return "not_found"
	case ReasonFatal:
		return "fatal"
	case ReasonStalled:
		return "stalled"
	case ReasonInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Result summarizes a finished run. Processed is the number of distinct
// image posts successfully handled this run, deduplicated by shortcode
// across traversal restarts. Err carries the terminal error for not-found,
// fatal, and interrupted runs.
type Result struct {
	Processed int
	Reason    StopReason
	Err       error
}

// WaitFunc blocks for the given backoff delay. Injected so the CLI can
// render a live countdown and tests can skip the sleep.
type WaitFunc func(ctx context.Context, delay time.Duration) error

// Options configures a Controller.
type Options struct {
	// Schedule is the backoff schedule between traversal attempts.
	// Defaults to retry.DefaultSchedule.
	Schedule retry.Schedule
	// Wait performs the backoff sleep. Defaults to retry.Wait.
	Wait WaitFunc
	// Pacer, when set, spaces out fresh downloads.
	Pacer ratelimit.Pacer
	// FastUpdate stops the traversal at the first post already on disk.
	FastUpdate bool
	// OnDownload is called after each processed post with the running count.
	OnDownload func(post *models.Post, processed int)
	// Logger defaults to the global logger.
	Logger logger.Logger
}

// Controller walks a profile's posts through a MediaSource, retrying full
// traversals on transient failures with a fixed backoff schedule. It is
// strictly sequential: one traversal at a time, no download concurrency.
type Controller struct {
	source MediaSource
	opts   Options
	logger logger.Logger
}

// errFastUpdateStop ends a traversal early once fast-update hits a post that
// is already archived. Treated as successful completion.
var errFastUpdateStop = stderrors.New("fast update: reached already archived post")

// NewController creates a controller over the given media source.
func NewController(source MediaSource, opts Options) *Controller {
	if len(opts.Schedule.Delays) == 0 {
		opts.Schedule = retry.DefaultSchedule()
	}
	if opts.Wait == nil {
		opts.Wait = retry.Wait
	}
	log := opts.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	return &Controller{
		source: source,
		opts:   opts,
		logger: log,
	}
}

// Run archives the profile's image posts until done, stalled, or aborted.
// All iteration errors are converted into control decisions here; none
// escape as a crash. The partial count survives interruption.
func (c *Controller) Run(ctx context.Context, profile *models.Profile) Result {
	seen := make(map[string]bool)
	processed := 0
	backoffIdx := 0

	for {
		countBefore := processed

		err := c.traverse(ctx, profile, seen, &processed)
		if err == nil || stderrors.Is(err, errFastUpdateStop) {
			c.logger.InfoWithFields("traversal complete", map[string]interface{}{
				"username":  profile.Username,
				"processed": processed,
			})
			return Result{Processed: processed, Reason: ReasonCompleted}
		}

		if ctx.Err() != nil || stderrors.Is(err, context.Canceled) {
			c.logger.WarnWithFields("run interrupted", map[string]interface{}{
				"username":  profile.Username,
				"processed": processed,
			})
			return Result{Processed: processed, Reason: ReasonInterrupted, Err: err}
		}

		switch errors.Classify(err) {
		case errors.ClassNotFound:
			c.logger.ErrorWithFields("profile or content no longer available", map[string]interface{}{
				"username": profile.Username,
				"error":    err.Error(),
			})
			return Result{Processed: processed, Reason: ReasonNotFound, Err: err}

		case errors.ClassRetryable:
			delay := c.opts.Schedule.NextDelay(backoffIdx)
			c.logger.WarnWithFields("transient failure, backing off", map[string]interface{}{
				"username":      profile.Username,
				"error":         err.Error(),
				"wait":          delay,
				"backoff_index": backoffIdx,
			})
			if waitErr := c.opts.Wait(ctx, delay); waitErr != nil {
				return Result{Processed: processed, Reason: ReasonInterrupted, Err: waitErr}
			}
			backoffIdx++

		default:
			c.logger.ErrorWithFields("unrecoverable error", map[string]interface{}{
				"username": profile.Username,
				"error":    err.Error(),
			})
			return Result{Processed: processed, Reason: ReasonFatal, Err: err}
		}

		// Stall guard. The exhausted check latches because the index only
		// ever grows within a run.
		if processed == countBefore && c.opts.Schedule.Exhausted(backoffIdx) {
			c.logger.ErrorWithFields("no progress with backoff schedule exhausted, giving up", map[string]interface{}{
				"username":  profile.Username,
				"processed": processed,
			})
			return Result{Processed: processed, Reason: ReasonStalled}
		}
	}
}

// traverse walks the post sequence once from the beginning. It returns nil
// on a clean finish, errFastUpdateStop when fast-update ends the walk early,
// or the iteration error that interrupted it. Per-post download failures are
// logged and skipped; they never end a traversal.
func (c *Controller) traverse(ctx context.Context, profile *models.Profile, seen map[string]bool, processed *int) error {
	it := c.source.Posts(profile)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		post, err := it.Next(ctx)
		if stderrors.Is(err, models.ErrEndOfPosts) {
			return nil
		}
		if err != nil {
			return err
		}

		if post.IsVideo {
			c.logger.InfoWithFields("skipping video post", map[string]interface{}{
				"shortcode": post.Shortcode,
			})
			continue
		}

		if seen[post.Shortcode] {
			continue
		}

		fresh, err := c.source.DownloadPost(ctx, post)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			c.logger.WarnWithFields("post download failed, skipping", map[string]interface{}{
				"shortcode": post.Shortcode,
				"error":     err.Error(),
			})
			continue
		}

		seen[post.Shortcode] = true
		*processed++
		c.logger.InfoWithFields("post archived", map[string]interface{}{
			"shortcode": post.Shortcode,
			"processed": *processed,
			"fresh":     fresh,
		})
		if c.opts.OnDownload != nil {
			c.opts.OnDownload(post, *processed)
		}

		if fresh {
			if c.opts.Pacer != nil {
				if err := c.opts.Pacer.Wait(ctx); err != nil {
					return err
				}
			}
		} else if c.opts.FastUpdate {
			c.logger.Info("fast update: reached already archived post, stopping")
			return errFastUpdateStop
		}
	}
}
