package api

import "github.com/dmitrijs2005/socialmaster/internal/server/models"

// Dates on the wire are "YYYY-MM-DD"; timestamps are RFC 3339.

type Empty struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

type DateRequest struct {
	Date string `json:"date"`
}

type ListPostsRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Post struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Content     string `json:"content"`
	ImageURL    string `json:"image_url,omitempty"`
	Published   bool   `json:"published"`
	PublishedAt string `json:"published_at,omitempty"`
}

type PostResponse struct {
	Post Post `json:"post"`
}

type PostsResponse struct {
	Posts []Post `json:"posts"`
}

type UpdatePostContentRequest struct {
	Date    string `json:"date"`
	Content string `json:"content"`
}

type StatsResponse struct {
	Total     int64 `json:"total"`
	Published int64 `json:"published"`
	Scheduled int64 `json:"scheduled"`
}

type Profile struct {
	Email    string                 `json:"email,omitempty"`
	Metadata models.ProfileMetadata `json:"metadata"`
}

type Preferences struct {
	AutoPublish bool   `json:"auto_publish"`
	DefaultTime string `json:"default_time"`
	Facebook    bool   `json:"facebook"`
	Instagram   bool   `json:"instagram"`
}

type ConnectSocialAccountRequest struct {
	Platform    string `json:"platform"`
	ExternalID  string `json:"external_id"`
	AccessToken string `json:"access_token"`
}

// SocialAccount never carries the platform access token back to clients.
type SocialAccount struct {
	ID          string `json:"id"`
	Platform    string `json:"platform"`
	ExternalID  string `json:"external_id"`
	IsConnected bool   `json:"is_connected"`
	CreatedAt   string `json:"created_at,omitempty"`
}

type SocialAccountResponse struct {
	Account SocialAccount `json:"account"`
}

type SocialAccountsResponse struct {
	Accounts []SocialAccount `json:"accounts"`
}

type IDRequest struct {
	ID string `json:"id"`
}

type GenerateBatchRequest struct {
	Start string `json:"start"`
	Days  int    `json:"days"`
}

// BatchEvent is one message of the GenerateBatch stream. The last message
// has State "complete" or "aborted" and lists the persisted posts.
type BatchEvent struct {
	State     string  `json:"state"`
	Date      string  `json:"date,omitempty"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Fraction  float64 `json:"fraction"`
	Posts     []Post  `json:"posts,omitempty"`
	Error     string  `json:"error,omitempty"`
}
