// Package classify proposes a category for a newly reported issue.
package classify

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/joescharf/urbaneyes/internal/llm"
	"github.com/joescharf/urbaneyes/internal/models"
)

// Sources reported in Result.Source.
const (
	SourceLLM      = "llm"
	SourceKeywords = "keywords"
)

// CategorySuggester is the model-backed half of the suggester. *llm.Client
// implements it.
type CategorySuggester interface {
	SuggestCategory(ctx context.Context, title, description string, categories []string) (*llm.Suggestion, error)
}

// Result is a proposed category. Category is nil when nothing fits.
type Result struct {
	Category *models.Category `json:"category"`
	Reason   string           `json:"reason,omitempty"`
	Source   string           `json:"source"`
}

// Suggester picks a category using the LLM when one is configured and
// keyword heuristics otherwise (or when the LLM call fails).
type Suggester struct {
	llm CategorySuggester
}

// New creates a Suggester. A nil suggester means keywords only.
func New(s CategorySuggester) *Suggester {
	return &Suggester{llm: s}
}

// Suggest proposes one of categories for an issue with the given text.
func (s *Suggester) Suggest(ctx context.Context, title, description string, categories []*models.Category) (*Result, error) {
	if len(categories) == 0 {
		return &Result{Source: SourceKeywords}, nil
	}

	if s.llm != nil {
		names := make([]string, len(categories))
		for i, c := range categories {
			names[i] = c.Name
		}
		sug, err := s.llm.SuggestCategory(ctx, title, description, names)
		if err == nil {
			return &Result{Category: byName(categories, sug.Category), Reason: sug.Reason, Source: SourceLLM}, nil
		}
		slog.Warn("llm category suggestion failed, using keywords", "error", err)
	}

	c := classifyByKeywords(title+" "+description, categories)
	res := &Result{Category: c, Source: SourceKeywords}
	if c != nil {
		res.Reason = "keyword match on " + c.Name
	}
	return res, nil
}

func byName(categories []*models.Category, name string) *models.Category {
	if name == "" {
		return nil
	}
	for _, c := range categories {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// synonyms maps a stem found in category names to words residents use
// when reporting that kind of problem.
var synonyms = map[string][]string{
	"road":           {"pothole", "asphalt", "pavement", "street", "curb", "crack"},
	"light":          {"streetlight", "lamp", "bulb", "dark", "lighting"},
	"water":          {"leak", "flood", "pipe", "hydrant", "drain", "sewer"},
	"sanitation":     {"garbage", "litter", "trash", "rubbish", "bin", "dumping"},
	"waste":          {"garbage", "litter", "trash", "rubbish", "bin", "dumping"},
	"park":           {"bench", "playground", "grass", "hedge", "fountain"},
	"traffic":        {"signal", "crosswalk", "stop sign", "speeding", "parking"},
	"environment":    {"pollution", "noise", "smell", "tree", "smoke"},
	"infrastructure": {"bridge", "sidewalk", "pothole", "road", "streetlight"},
	"vandal":         {"graffiti", "vandalism", "broken window", "smashed"},
}

// classifyByKeywords scores each category by how many of its name words
// (and their synonyms) occur in text. The highest positive score wins;
// ties go to the earlier category.
func classifyByKeywords(text string, categories []*models.Category) *models.Category {
	lower := strings.ToLower(text)

	var best *models.Category
	bestScore := 0
	for _, c := range categories {
		score := 0
		for _, word := range nameWords(c.Name) {
			if strings.Contains(lower, stem(word)) {
				score += 2
			}
			for key, syns := range synonyms {
				if !strings.HasPrefix(word, key) {
					continue
				}
				for _, syn := range syns {
					if strings.Contains(lower, syn) {
						score++
					}
				}
			}
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

func nameWords(name string) []string {
	return strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

// stem drops a plural "s" so "Roads" matches "road".
func stem(word string) string {
	if len(word) > 3 && strings.HasSuffix(word, "s") {
		return strings.TrimSuffix(word, "s")
	}
	return word
}
