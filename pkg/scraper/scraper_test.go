package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	igerrors "igarchive/pkg/errors"
	"igarchive/pkg/models"
	"igarchive/pkg/retry"
)

func imagePost(shortcode string) *models.Post {
	return &models.Post{ID: "id_" + shortcode, Shortcode: shortcode, DisplayURL: "https://cdn.example.com/" + shortcode + ".jpg"}
}

func videoPost(shortcode string) *models.Post {
	p := imagePost(shortcode)
	p.IsVideo = true
	return p
}

// traversalScript describes one traversal attempt of the fake source: yield
// the first failAfter posts, then fail with err. A nil err means the full
// sequence is yielded.
type traversalScript struct {
	failAfter int
	err       error
}

type fakeIterator struct {
	posts  []*models.Post
	script traversalScript
	idx    int
}

func (it *fakeIterator) Next(ctx context.Context) (*models.Post, error) {
	if it.script.err != nil && it.idx >= it.script.failAfter {
		return nil, it.script.err
	}
	if it.idx >= len(it.posts) {
		return nil, models.ErrEndOfPosts
	}
	post := it.posts[it.idx]
	it.idx++
	return post, nil
}

type fakeSource struct {
	posts   []*models.Post
	scripts []traversalScript

	traversals    int
	saved         map[string]bool
	downloadCalls map[string]int
	downloadErrs  map[string]error
}

func newFakeSource(posts []*models.Post, scripts ...traversalScript) *fakeSource {
	return &fakeSource{
		posts:         posts,
		scripts:       scripts,
		saved:         make(map[string]bool),
		downloadCalls: make(map[string]int),
		downloadErrs:  make(map[string]error),
	}
}

func (s *fakeSource) ResolveProfile(ctx context.Context, username string) (*models.Profile, error) {
	return &models.Profile{Username: username, ID: "1", MediaCount: len(s.posts)}, nil
}

func (s *fakeSource) Posts(profile *models.Profile) PostIterator {
	script := traversalScript{}
	if s.traversals < len(s.scripts) {
		script = s.scripts[s.traversals]
	}
	s.traversals++
	return &fakeIterator{posts: s.posts, script: script}
}

func (s *fakeSource) DownloadPost(ctx context.Context, post *models.Post) (bool, error) {
	s.downloadCalls[post.Shortcode]++
	if err := s.downloadErrs[post.Shortcode]; err != nil {
		return false, err
	}
	fresh := !s.saved[post.Shortcode]
	s.saved[post.Shortcode] = true
	return fresh, nil
}

func noWait(ctx context.Context, delay time.Duration) error {
	return ctx.Err()
}

func testProfile() *models.Profile {
	return &models.Profile{Username: "someone", ID: "1"}
}

func TestCleanTraversalSkipsVideos(t *testing.T) {
	source := newFakeSource([]*models.Post{
		imagePost("AAA"),
		videoPost("BBB"),
		imagePost("CCC"),
	})
	ctrl := NewController(source, Options{Wait: noWait})

	result := ctrl.Run(context.Background(), testProfile())

	assert.Equal(t, ReasonCompleted, result.Reason)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, source.traversals)
	assert.Zero(t, source.downloadCalls["BBB"], "video must never be downloaded")
}

func TestRetryableErrorRestartsWithoutDoubleCounting(t *testing.T) {
	posts := []*models.Post{
		imagePost("AAA"),
		videoPost("BBB"),
		imagePost("CCC"),
	}
	// First attempt: download A, then 429. Second attempt: clean run.
	source := newFakeSource(posts,
		traversalScript{failAfter: 1, err: igerrors.FromStatusCode(429, "too many requests")},
	)

	var waits []time.Duration
	ctrl := NewController(source, Options{
		Wait: func(ctx context.Context, delay time.Duration) error {
			waits = append(waits, delay)
			return nil
		},
	})

	result := ctrl.Run(context.Background(), testProfile())

	assert.Equal(t, ReasonCompleted, result.Reason)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, source.traversals)
	require.Len(t, waits, 1)
	assert.Equal(t, 60*time.Second, waits[0], "first backoff uses the head of the schedule")
	// The restart re-yields A but the shortcode dedupe skips it before any
	// download is attempted.
	assert.Equal(t, 1, source.downloadCalls["AAA"])
}

func TestBackoffScheduleEscalatesAndReusesLast(t *testing.T) {
	err429 := igerrors.FromStatusCode(429, "too many requests")
	source := newFakeSource([]*models.Post{imagePost("AAA")},
		traversalScript{failAfter: 1, err: err429},
		traversalScript{failAfter: 1, err: err429},
		traversalScript{failAfter: 1, err: err429},
	)

	var waits []time.Duration
	ctrl := NewController(source, Options{
		Wait: func(ctx context.Context, delay time.Duration) error {
			waits = append(waits, delay)
			return nil
		},
	})

	result := ctrl.Run(context.Background(), testProfile())

	assert.Equal(t, ReasonCompleted, result.Reason)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, []time.Duration{60 * time.Second, 120 * time.Second, 300 * time.Second}, waits)
}

func TestUnclassifiedErrorTerminatesImmediately(t *testing.T) {
	source := newFakeSource([]*models.Post{imagePost("AAA")},
		traversalScript{failAfter: 0, err: errors.New("something completely unexpected")},
	)
	ctrl := NewController(source, Options{Wait: noWait})

	result := ctrl.Run(context.Background(), testProfile())

	assert.Equal(t, ReasonFatal, result.Reason)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, 1, source.traversals)
	assert.Error(t, result.Err)
}

func TestNotFoundTerminatesWithoutRetry(t *testing.T) {
	source := newFakeSource([]*models.Post{imagePost("AAA"), imagePost("CCC")},
		traversalScript{failAfter: 1, err: igerrors.FromStatusCode(404, "not found")},
	)

	waited := false
	ctrl := NewController(source, Options{
		Wait: func(ctx context.Context, delay time.Duration) error {
			waited = true
			return nil
		},
	})

	result := ctrl.Run(context.Background(), testProfile())

	assert.Equal(t, ReasonNotFound, result.Reason)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, source.traversals)
	assert.False(t, waited, "not found must not trigger a backoff")
}

func TestStallGuardTerminates(t *testing.T) {
	err429 := igerrors.FromStatusCode(429, "too many requests")
	// Every attempt fails before any progress; with a two-entry schedule the
	// run must stop after the index runs past the end.
	source := newFakeSource([]*models.Post{imagePost("AAA")},
		traversalScript{failAfter: 0, err: err429},
		traversalScript{failAfter: 0, err: err429},
		traversalScript{failAfter: 0, err: err429},
		traversalScript{failAfter: 0, err: err429},
		traversalScript{failAfter: 0, err: err429},
	)

	ctrl := NewController(source, Options{
		Schedule: retry.Schedule{Delays: []time.Duration{time.Second, 2 * time.Second}},
		Wait:     noWait,
	})

	result := ctrl.Run(context.Background(), testProfile())

	assert.Equal(t, ReasonStalled, result.Reason)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, 2, source.traversals, "one attempt per schedule entry before the guard fires")
}

func TestStallGuardAllowsProgressAfterExhaustion(t *testing.T) {
	err429 := igerrors.FromStatusCode(429, "too many requests")
	posts := []*models.Post{imagePost("AAA"), imagePost("CCC"), imagePost("DDD")}
	// The schedule exhausts, but every attempt still makes progress on one
	// new post, so the run completes.
	source := newFakeSource(posts,
		traversalScript{failAfter: 1, err: err429},
		traversalScript{failAfter: 2, err: err429},
		traversalScript{failAfter: 3, err: err429},
	)

	ctrl := NewController(source, Options{
		Schedule: retry.Schedule{Delays: []time.Duration{time.Second}},
		Wait:     noWait,
	})

	result := ctrl.Run(context.Background(), testProfile())

	assert.Equal(t, ReasonCompleted, result.Reason)
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 4, source.traversals)
}

func TestPerPostFailureIsSkipped(t *testing.T) {
	source := newFakeSource([]*models.Post{
		imagePost("AAA"),
		imagePost("BAD"),
		imagePost("CCC"),
	})
	source.downloadErrs["BAD"] = errors.New("cdn hiccup")

	ctrl := NewController(source, Options{Wait: noWait})
	result := ctrl.Run(context.Background(), testProfile())

	assert.Equal(t, ReasonCompleted, result.Reason)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, source.downloadCalls["BAD"], "failed post is never retried individually")
}

func TestFastUpdateStopsAtArchivedPost(t *testing.T) {
	source := newFakeSource([]*models.Post{
		imagePost("NEW1"),
		imagePost("OLD1"),
		imagePost("OLD2"),
	})
	source.saved["OLD1"] = true
	source.saved["OLD2"] = true

	ctrl := NewController(source, Options{Wait: noWait, FastUpdate: true})
	result := ctrl.Run(context.Background(), testProfile())

	assert.Equal(t, ReasonCompleted, result.Reason)
	assert.Equal(t, 2, result.Processed, "the boundary no-op still counts")
	assert.Zero(t, source.downloadCalls["OLD2"], "traversal stops at the first archived post")
}

func TestInterruptReportsPartialCount(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	source := newFakeSource([]*models.Post{
		imagePost("AAA"),
		imagePost("CCC"),
		imagePost("DDD"),
	})

	ctrl := NewController(source, Options{
		Wait: noWait,
		OnDownload: func(post *models.Post, processed int) {
			if processed == 2 {
				cancel()
			}
		},
	})

	result := ctrl.Run(ctx, testProfile())

	assert.Equal(t, ReasonInterrupted, result.Reason)
	assert.Equal(t, 2, result.Processed)
}

func TestInterruptDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	source := newFakeSource([]*models.Post{imagePost("AAA")},
		traversalScript{failAfter: 1, err: igerrors.FromStatusCode(429, "too many requests")},
	)

	ctrl := NewController(source, Options{
		Wait: func(waitCtx context.Context, delay time.Duration) error {
			cancel()
			return waitCtx.Err()
		},
	})

	result := ctrl.Run(ctx, testProfile())

	assert.Equal(t, ReasonInterrupted, result.Reason)
	assert.Equal(t, 1, result.Processed)
}

func TestOnDownloadCallback(t *testing.T) {
	source := newFakeSource([]*models.Post{imagePost("AAA"), imagePost("CCC")})

	var counts []int
	ctrl := NewController(source, Options{
		Wait: noWait,
		OnDownload: func(post *models.Post, processed int) {
			counts = append(counts, processed)
		},
	})

	result := ctrl.Run(context.Background(), testProfile())

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, []int{1, 2}, counts)
}
