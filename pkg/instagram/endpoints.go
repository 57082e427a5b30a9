package instagram

import (
	"fmt"
	"net/url"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// ProfileEndpoint is the endpoint pattern for user profiles
	ProfileEndpoint = "/api/v1/users/web_profile_info/"

	// MediaEndpoint is the endpoint pattern for user media
	MediaEndpoint = "/graphql/query/"

	// LoginEndpoint is the endpoint for password login
	LoginEndpoint = "/accounts/login/ajax/"

	// MediaQueryHash is the query hash for fetching user media
	MediaQueryHash = "e769aa130647d2354c40ea6a439bfc08"

	// DefaultPageSize is the default number of media items to fetch per request
	DefaultPageSize = 12

	// MaxPageSize is the maximum number of media items per request
	MaxPageSize = 50
)

// ProfileURL constructs the URL for fetching a user's profile.
func ProfileURL(base, username string) string {
	params := url.Values{}
	params.Set("username", username)

	return fmt.Sprintf("%s%s?%s", base, ProfileEndpoint, params.Encode())
}

// MediaURL constructs the URL for fetching one page of a user's timeline.
func MediaURL(base, userID, after string, limit int) string {
	if limit <= 0 {
		limit = DefaultPageSize
	} else if limit > MaxPageSize {
		limit = MaxPageSize
	}

	params := url.Values{}
	params.Set("query_hash", MediaQueryHash)
	params.Set("variables", fmt.Sprintf(`{"id":"%s","first":%d,"after":"%s"}`, userID, limit, after))

	return fmt.Sprintf("%s%s?%s", base, MediaEndpoint, params.Encode())
}

// PostURL constructs the canonical URL for a post.
func PostURL(shortcode string) string {
	if shortcode == "" {
		return ""
	}
	return fmt.Sprintf("%s/p/%s/", BaseURL, shortcode)
}

// IsValidUsername checks if a username is valid according to Instagram rules.
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}

	// Letters, numbers, periods, and underscores only.
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername strips a leading @ and trailing slashes or spaces from
// user-supplied input.
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}

	if username[0] == '@' {
		username = username[1:]
	}

	for len(username) > 0 && (username[len(username)-1] == '/' || username[len(username)-1] == ' ') {
		username = username[:len(username)-1]
	}

	return username
}
