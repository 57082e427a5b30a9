package instagram

import (
	"context"

	"igarchive/pkg/models"
)

// postIterator walks a profile's timeline lazily, one GraphQL page at a
// time. It always starts from the newest post; a fresh iterator is required
// to restart a traversal.
type postIterator struct {
	client   *Client
	userID   string
	pageSize int

	buffer  []*models.Post
	after   string
	hasNext bool
	started bool
}

func newPostIterator(client *Client, userID string, pageSize int) *postIterator {
	return &postIterator{
		client:   client,
		userID:   userID,
		pageSize: pageSize,
		hasNext:  true,
	}
}

// Next returns the next post in timeline order. It returns
// models.ErrEndOfPosts once the timeline is fully walked, or the transport
// error that interrupted the walk.
func (it *postIterator) Next(ctx context.Context) (*models.Post, error) {
	for len(it.buffer) == 0 {
		if it.started && !it.hasNext {
			return nil, models.ErrEndOfPosts
		}
		if err := it.fetchPage(ctx); err != nil {
			return nil, err
		}
		if len(it.buffer) == 0 && !it.hasNext {
			return nil, models.ErrEndOfPosts
		}
	}

	post := it.buffer[0]
	it.buffer = it.buffer[1:]
	return post, nil
}

func (it *postIterator) fetchPage(ctx context.Context) error {
	page, err := it.client.FetchTimelinePage(ctx, it.userID, it.after, it.pageSize)
	if err != nil {
		return err
	}

	it.started = true
	it.after = page.PageInfo.EndCursor
	it.hasNext = page.PageInfo.HasNextPage

	for i := range page.Edges {
		it.buffer = append(it.buffer, page.Edges[i].Node.ToPost())
	}
	return nil
}
