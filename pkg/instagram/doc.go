// Package instagram provides the media source backing the archiver.
//
// It wraps the two documented web API endpoints (web_profile_info for
// profiles, graphql/query for paginated timeline media) behind a typed
// client, and exposes a Source that the retry controller drives:
//
//	client, _ := instagram.NewClient(instagram.Options{Timeout: 30 * time.Second})
//	store, _ := storage.NewManager("./photos")
//	source := instagram.NewSource(client, store, instagram.SourceOptions{})
//
//	profile, err := source.ResolveProfile(ctx, "username")
//	it := source.Posts(profile)
//	for {
//	    post, err := it.Next(ctx)
//	    if errors.Is(err, models.ErrEndOfPosts) {
//	        break
//	    }
//	    // ...
//	}
//
// Authentication (password login, session cookie injection) is entirely this
// package's concern; callers above it only see resolved profiles and posts.
package instagram
