package instagram

import (
	"time"

	"igarchive/pkg/models"
)

// APIResponse is the top-level response shape shared by the profile and
// timeline endpoints.
type APIResponse struct {
	RequiresToLogin bool   `json:"requires_to_login"`
	Data            Data   `json:"data"`
	Status          string `json:"status"`
	Message         string `json:"message"`
}

// Data wraps the user information in the response.
type Data struct {
	User User `json:"user"`
}

// User represents an Instagram user profile.
type User struct {
	ID                       string                   `json:"id"`
	Username                 string                   `json:"username"`
	IsPrivate                bool                     `json:"is_private"`
	EdgeOwnerToTimelineMedia EdgeOwnerToTimelineMedia `json:"edge_owner_to_timeline_media"`
}

// EdgeOwnerToTimelineMedia contains the user's timeline media.
type EdgeOwnerToTimelineMedia struct {
	Count    int      `json:"count"`
	PageInfo PageInfo `json:"page_info"`
	Edges    []Edge   `json:"edges"`
}

// PageInfo contains pagination information.
type PageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor"`
}

// Edge wraps a single media node.
type Edge struct {
	Node Node `json:"node"`
}

// Node represents a single media item (photo, video, or carousel).
type Node struct {
	ID                    string                `json:"id"`
	Shortcode             string                `json:"shortcode"`
	DisplayURL            string                `json:"display_url"`
	IsVideo               bool                  `json:"is_video"`
	TakenAtTimestamp      int64                 `json:"taken_at_timestamp"`
	PinnedForUsers        []PinnedUser          `json:"pinned_for_users"`
	EdgeMediaToCaption    EdgeMediaToCaption    `json:"edge_media_to_caption"`
	EdgeLikedBy           CountEdge             `json:"edge_liked_by"`
	EdgeMediaToComment    CountEdge             `json:"edge_media_to_comment"`
	EdgeSidecarToChildren EdgeSidecarToChildren `json:"edge_sidecar_to_children"`
}

// EdgeSidecarToChildren holds the child media of a carousel post. Empty for
// single-media posts.
type EdgeSidecarToChildren struct {
	Edges []Edge `json:"edges"`
}

// PinnedUser identifies a user who pinned a post to their profile.
type PinnedUser struct {
	ID string `json:"id"`
}

// EdgeMediaToCaption holds a post's caption edges.
type EdgeMediaToCaption struct {
	Edges []CaptionEdge `json:"edges"`
}

// CaptionEdge wraps one caption text node.
type CaptionEdge struct {
	Node struct {
		Text string `json:"text"`
	} `json:"node"`
}

// CountEdge holds an engagement count.
type CountEdge struct {
	Count int `json:"count"`
}

// loginResponse is the shape returned by the login endpoint.
type loginResponse struct {
	Authenticated     bool   `json:"authenticated"`
	User              bool   `json:"user"`
	UserID            string `json:"userId"`
	TwoFactorRequired bool   `json:"two_factor_required"`
	CheckpointURL     string `json:"checkpoint_url"`
	Status            string `json:"status"`
	Message           string `json:"message"`
}

// ToPost converts a wire node into the domain post type.
func (n *Node) ToPost() *models.Post {
	post := &models.Post{
		ID:         n.ID,
		Shortcode:  n.Shortcode,
		DisplayURL: n.DisplayURL,
		IsVideo:    n.IsVideo,
		IsPinned:   len(n.PinnedForUsers) > 0,
		Likes:      n.EdgeLikedBy.Count,
		Comments:   n.EdgeMediaToComment.Count,
	}
	if n.TakenAtTimestamp > 0 {
		post.TakenAt = time.Unix(n.TakenAtTimestamp, 0)
	}
	if len(n.EdgeMediaToCaption.Edges) > 0 {
		post.Caption = n.EdgeMediaToCaption.Edges[0].Node.Text
	}
	if !n.IsVideo {
		for _, edge := range n.EdgeSidecarToChildren.Edges {
			if edge.Node.IsVideo {
				continue
			}
			post.ImageURLs = append(post.ImageURLs, edge.Node.DisplayURL)
		}
		if len(post.ImageURLs) == 0 {
			post.ImageURLs = []string{n.DisplayURL}
		}
	}
	return post
}

// ToProfile converts a wire user into the domain profile type.
func (u *User) ToProfile() *models.Profile {
	return &models.Profile{
		Username:   u.Username,
		ID:         u.ID,
		MediaCount: u.EdgeOwnerToTimelineMedia.Count,
		IsPrivate:  u.IsPrivate,
	}
}
