package service

import (
	"context"
	"fmt"
	"log"
	"sort"

	"cipherquest/internal/models"
)

// LeaderboardService projects progress records and the catalogue into a
// ranking. Nothing it produces is stored, so the ranking cannot drift from
// solve state.
type LeaderboardService struct {
	store   ProgressStore
	catalog ChallengeCatalog
	users   UserStore
}

// NewLeaderboardService creates a new leaderboard service. users may be nil,
// in which case entries are labelled with the user id.
func NewLeaderboardService(store ProgressStore, catalog ChallengeCatalog, users UserStore) *LeaderboardService {
	return &LeaderboardService{
		store:   store,
		catalog: catalog,
		users:   users,
	}
}

// Compute ranks every user with at least one record. Score is the sum of
// points over solved records; challenges missing from the catalogue score
// nothing. Ties are broken by ascending user id and every entry gets its own
// sequential rank.
func (s *LeaderboardService) Compute(ctx context.Context) ([]models.LeaderboardEntry, error) {
	records, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}

	names := s.usernames(ctx)
	return Rank(records, s.catalog, names), nil
}

// Top returns the first n entries of Compute. n <= 0 returns all of them.
func (s *LeaderboardService) Top(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	entries, err := s.Compute(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 && n < len(entries) {
		entries = entries[:n]
	}
	return entries, nil
}

// usernames is best effort: a failing user directory degrades display
// names to ids instead of failing the leaderboard
func (s *LeaderboardService) usernames(ctx context.Context) map[string]string {
	if s.users == nil {
		return nil
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		log.Printf("Warning: leaderboard falling back to user ids: %v", err)
		return nil
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}
	return names
}

// Rank is the pure projection behind Compute
func Rank(records []models.ProgressRecord, catalog ChallengeCatalog, names map[string]string) []models.LeaderboardEntry {
	byUser := make(map[string]*models.LeaderboardEntry)
	for _, r := range records {
		entry, ok := byUser[r.UserID]
		if !ok {
			entry = &models.LeaderboardEntry{UserID: r.UserID, Username: r.UserID}
			if name := names[r.UserID]; name != "" {
				entry.Username = name
			}
			byUser[r.UserID] = entry
		}
		if !r.Solved {
			continue
		}
		challenge, ok := catalog.Get(r.ChallengeID)
		if !ok {
			continue
		}
		entry.Score += challenge.Points
		entry.Solved++
	}

	entries := make([]models.LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		entries = append(entries, *e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].UserID < entries[j].UserID
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
