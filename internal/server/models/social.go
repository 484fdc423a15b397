package models

import "time"

const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
)

// SocialAccount is a connected Facebook page or Instagram business account.
type SocialAccount struct {
	ID          string
	AccountID   string
	Platform    string
	ExternalID  string
	AccessToken string
	IsConnected bool
	CreatedAt   time.Time
}
