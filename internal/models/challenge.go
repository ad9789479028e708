package models

// Challenge categories, ordered by difficulty
const (
	CategoryBeginner     = "Beginner"
	CategoryIntermediate = "Intermediate"
	CategoryAdvanced     = "Advanced"
)

// Challenge is an immutable cipher puzzle from the catalogue
type Challenge struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	CipherType  string `json:"cipherType" yaml:"cipher_type"`
	Category    string `json:"category" yaml:"category"`
	Hint        string `json:"hint,omitempty" yaml:"hint"`
	Ciphertext  string `json:"ciphertext" yaml:"ciphertext"`
	Plaintext   string `json:"-" yaml:"plaintext"`
	Points      int    `json:"points" yaml:"points"`
}

// PublicChallenge is the catalogue view handed to clients. It never carries
// the canonical solution.
type PublicChallenge struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CipherType  string `json:"cipherType"`
	Category    string `json:"category"`
	Hint        string `json:"hint,omitempty"`
	Ciphertext  string `json:"ciphertext"`
	Points      int    `json:"points"`
}

// Public returns the client-safe view of the challenge
func (c Challenge) Public() PublicChallenge {
	return PublicChallenge{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		CipherType:  c.CipherType,
		Category:    c.Category,
		Hint:        c.Hint,
		Ciphertext:  c.Ciphertext,
		Points:      c.Points,
	}
}
