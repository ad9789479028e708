package models

import "time"

// ProgressRecord is one user's state for one challenge. At most one record
// exists per (UserID, ChallengeID); Solved never goes back to false.
type ProgressRecord struct {
	UserID          string     `json:"userId"`
	ChallengeID     string     `json:"challengeId"`
	Solved          bool       `json:"solved"`
	Attempts        int        `json:"attempts"`
	LastAttemptedAt *time.Time `json:"lastAttemptedAt"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Key identifies the (user, challenge) pair of a record
func (r ProgressRecord) Key() ProgressKey {
	return ProgressKey{UserID: r.UserID, ChallengeID: r.ChallengeID}
}

// Merge folds other into r the way a restore does: attempts take the
// larger count, solved is OR'ed and the latest attempt time wins
func (r ProgressRecord) Merge(other ProgressRecord) ProgressRecord {
	merged := r
	if other.Attempts > merged.Attempts {
		merged.Attempts = other.Attempts
	}
	merged.Solved = r.Solved || other.Solved
	if other.LastAttemptedAt != nil && (merged.LastAttemptedAt == nil || other.LastAttemptedAt.After(*merged.LastAttemptedAt)) {
		t := *other.LastAttemptedAt
		merged.LastAttemptedAt = &t
	}
	if !other.CreatedAt.IsZero() && (merged.CreatedAt.IsZero() || other.CreatedAt.Before(merged.CreatedAt)) {
		merged.CreatedAt = other.CreatedAt
	}
	if other.UpdatedAt.After(merged.UpdatedAt) {
		merged.UpdatedAt = other.UpdatedAt
	}
	return merged
}

// ProgressKey is the composite identity of a progress record
type ProgressKey struct {
	UserID      string
	ChallengeID string
}

// SubmitResult is the outcome of a single answer submission
type SubmitResult struct {
	Correct bool           `json:"correct"`
	Record  ProgressRecord `json:"record"`
}
