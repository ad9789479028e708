package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"cipherquest/internal/models"
)

//go:embed default_challenges.yaml
var defaultChallenges []byte

// ErrEmpty is returned by Random when the catalogue holds no challenges
var ErrEmpty = errors.New("catalog is empty")

// file is the on-disk layout of a catalogue
type file struct {
	Challenges []models.Challenge `yaml:"challenges"`
}

// Catalog is the read-only set of challenges known to the service
type Catalog struct {
	challenges []models.Challenge
	byID       map[string]models.Challenge
}

// New builds a catalogue, rejecting duplicate ids and incomplete entries
func New(challenges []models.Challenge) (*Catalog, error) {
	c := &Catalog{
		challenges: make([]models.Challenge, 0, len(challenges)),
		byID:       make(map[string]models.Challenge, len(challenges)),
	}
	for i, ch := range challenges {
		if err := validateChallenge(ch); err != nil {
			return nil, fmt.Errorf("challenge %d: %w", i, err)
		}
		if _, exists := c.byID[ch.ID]; exists {
			return nil, fmt.Errorf("challenge %d: duplicate id %q", i, ch.ID)
		}
		c.byID[ch.ID] = ch
		c.challenges = append(c.challenges, ch)
	}
	return c, nil
}

// Default returns the built-in challenge set
func Default() (*Catalog, error) {
	return Parse(bytes.NewReader(defaultChallenges))
}

// Load reads a catalogue from a YAML file. An empty path yields the
// built-in set.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes a YAML catalogue. Unknown fields are rejected so a
// misspelled key does not silently drop a plaintext.
func Parse(r io.Reader) (*Catalog, error) {
	var doc file
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return New(doc.Challenges)
}

func validateChallenge(ch models.Challenge) error {
	if strings.TrimSpace(ch.ID) == "" {
		return errors.New("id is required")
	}
	if strings.TrimSpace(ch.Plaintext) == "" {
		return fmt.Errorf("%s: plaintext is required", ch.ID)
	}
	if ch.Points < 0 {
		return fmt.Errorf("%s: points must not be negative", ch.ID)
	}
	switch ch.Category {
	case models.CategoryBeginner, models.CategoryIntermediate, models.CategoryAdvanced:
	default:
		return fmt.Errorf("%s: unknown category %q", ch.ID, ch.Category)
	}
	return nil
}

// Get looks up a challenge by id
func (c *Catalog) Get(id string) (models.Challenge, bool) {
	ch, ok := c.byID[id]
	return ch, ok
}

// All returns every challenge in file order
func (c *Catalog) All() []models.Challenge {
	out := make([]models.Challenge, len(c.challenges))
	copy(out, c.challenges)
	return out
}

// ByCategory returns the challenges of one difficulty tier. The category is
// matched case-insensitively; an empty category returns everything.
func (c *Catalog) ByCategory(category string) []models.Challenge {
	if category == "" {
		return c.All()
	}
	var out []models.Challenge
	for _, ch := range c.challenges {
		if strings.EqualFold(ch.Category, category) {
			out = append(out, ch)
		}
	}
	return out
}

// Random picks a challenge uniformly
func (c *Catalog) Random() (models.Challenge, error) {
	if len(c.challenges) == 0 {
		return models.Challenge{}, ErrEmpty
	}
	return c.challenges[rand.IntN(len(c.challenges))], nil
}

// Len reports the number of challenges
func (c *Catalog) Len() int {
	return len(c.challenges)
}
