package goal

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxTextLength is the longest goal text accepted, in characters.
const MaxTextLength = 500

// Classifier maps goal text to a goal type. Implementations must be
// deterministic; unmatched text resolves to TypeCustom, never an error.
type Classifier interface {
	Classify(text string) Type
}

// KeywordGroup binds a goal type to the keywords that select it.
type KeywordGroup struct {
	Type     Type
	Keywords []string
}

// DefaultKeywordGroups returns the built-in groups in match order.
func DefaultKeywordGroups() []KeywordGroup {
	return []KeywordGroup{
		{TypeMovieTime, []string{"movie", "film", "cinema", "netflix"}},
		{TypeGoodnight, []string{"goodnight", "good night", "bedtime", "going to bed", "sleep"}},
		{TypeLeavingHome, []string{"leaving", "heading out", "going out", "away"}},
		{TypeWakeUp, []string{"wake", "good morning", "morning"}},
		{TypeArrivingHome, []string{"arriving", "back home", "home now", "i'm home"}},
		{TypeRelax, []string{"relax", "unwind", "chill"}},
	}
}

// KeywordClassifier matches lower-cased text against an ordered list of
// keyword groups by substring. The first group with any hit wins.
type KeywordClassifier struct {
	groups []KeywordGroup
}

// NewKeywordClassifier creates a classifier over groups. Nil uses the defaults.
func NewKeywordClassifier(groups []KeywordGroup) *KeywordClassifier {
	if groups == nil {
		groups = DefaultKeywordGroups()
	}
	normalised := make([]KeywordGroup, len(groups))
	for i, g := range groups {
		kws := make([]string, 0, len(g.Keywords))
		for _, kw := range g.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				kws = append(kws, kw)
			}
		}
		normalised[i] = KeywordGroup{Type: g.Type, Keywords: kws}
	}
	return &KeywordClassifier{groups: normalised}
}

// Classify implements Classifier.
func (c *KeywordClassifier) Classify(text string) Type {
	lower := strings.ToLower(text)
	for _, g := range c.groups {
		for _, kw := range g.Keywords {
			if strings.Contains(lower, kw) {
				return g.Type
			}
		}
	}
	return TypeCustom
}

// ValidateText checks goal text before classification.
func ValidateText(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return fmt.Errorf("%w: text is required", ErrInvalidGoal)
	}
	if utf8.RuneCountInString(text) > MaxTextLength {
		return fmt.Errorf("%w: text exceeds %d characters", ErrInvalidGoal, MaxTextLength)
	}
	return nil
}
