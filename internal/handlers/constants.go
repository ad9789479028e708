package handlers

const (
	// maxBodyBytes caps JSON request bodies
	maxBodyBytes = 64 << 10

	ErrInvalidJSON         = "Invalid JSON body"
	ErrUnauthorized        = "Unauthorized"
	ErrForbidden           = "Forbidden"
	ErrTooManyRequests     = "Too many requests, please try again later"
	ErrNotFound            = "Not found"
	ErrStorageUnavailable  = "Storage temporarily unavailable"
	ErrInternalServerError = "Internal server error"
	ErrInvalidLimit        = "limit must be a positive integer"
	ErrChallengeNotFound   = "Challenge not found"
	ErrUserNotFound        = "User not found"
	ErrProgressNotFound    = "Progress record not found"
	ErrCatalogEmpty        = "No challenges available"
)
