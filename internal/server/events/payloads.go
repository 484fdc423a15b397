package events

import "time"

type PostGenerated struct {
	AccountID string    `json:"account_id"`
	PostID    string    `json:"post_id"`
	Date      string    `json:"date"`
	At        time.Time `json:"at"`
}

type PostPublished struct {
	AccountID string    `json:"account_id"`
	PostID    string    `json:"post_id"`
	Date      string    `json:"date"`
	Platforms []string  `json:"platforms"`
	At        time.Time `json:"at"`
}

type TokensDebited struct {
	AccountID string    `json:"account_id"`
	Kind      string    `json:"kind"`
	Amount    int64     `json:"amount"`
	Balance   int64     `json:"balance"`
	At        time.Time `json:"at"`
}
