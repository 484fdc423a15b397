package models

// Profile holds the brand description used to build generation prompts.
type Profile struct {
	AccountID string
	Email     string
	Metadata  ProfileMetadata
}

// ProfileMetadata is stored as JSONB; empty fields fall back to prompt defaults.
type ProfileMetadata struct {
	Industry            string   `json:"industry,omitempty"`
	TargetAudience      string   `json:"targetAudience,omitempty"`
	ContentTypes        []string `json:"contentTypes,omitempty"`
	Tone                []string `json:"tone,omitempty"`
	Keywords            string   `json:"keywords,omitempty"`
	BrandValues         string   `json:"brandValues,omitempty"`
	UniqueSellingPoints string   `json:"uniqueSellingPoints,omitempty"`
	HashtagStrategy     string   `json:"hashtagStrategy,omitempty"`
	ContentLength       string   `json:"contentLength,omitempty"`
	ContentStyle        string   `json:"contentStyle,omitempty"`
	CallToAction        string   `json:"callToAction,omitempty"`
	Emoticons           string   `json:"emoticons,omitempty"`
	LanguageStyle       string   `json:"languageStyle,omitempty"`
	Competitors         string   `json:"competitors,omitempty"`
	MarketingGoals      string   `json:"marketingGoals,omitempty"`
	PreferredImageStyle string   `json:"preferredImageStyle,omitempty"`
	ColorPalette        string   `json:"colorPalette,omitempty"`
	PostLanguage        string   `json:"postLanguage,omitempty"`
}

// PostingPreferences controls automatic publishing.
type PostingPreferences struct {
	AccountID   string
	AutoPublish bool
	// DefaultTime is "HH:MM" in UTC.
	DefaultTime string
	Facebook    bool
	Instagram   bool
}
