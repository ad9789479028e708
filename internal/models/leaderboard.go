package models

// LeaderboardEntry is a derived ranking row. It is recomputed from progress
// records and the catalogue and never stored.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Score    int    `json:"score"`
	Solved   int    `json:"solved"`
}
