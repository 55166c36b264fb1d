package context7

import (
	"context"
	"strings"
	"unicode"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Keyword lists recognised in questions, in match priority order.
var (
	Languages = []string{
		"python", "javascript", "typescript", "c++", "java", "go",
		"rust", "swift", "kotlin", "ruby", "php", "csharp",
	}
	Frameworks = []string{
		"react", "vue", "angular", "svelte", "next.js", "nuxt", "django",
		"flask", "fastapi", "express", "spring", "rails", "laravel",
	}
	Libraries = []string{
		"numpy", "pandas", "scikit-learn", "tensorflow", "pytorch", "lodash",
		"moment", "axios", "requests", "httpx", "jinja2", "jinja",
	}
)

const maxKeywords = 3

// Confidence level labels.
const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

// Searcher is the library search the resolver needs. *Client implements it.
type Searcher interface {
	SearchLibrary(ctx context.Context, name, query string) ([]Library, error)
}

// Resolver picks a Context7 library for a free-form question.
type Resolver struct {
	searcher Searcher
	keywords []string
	patterns []*regexp2.Regexp
	logger   *zap.Logger
}

// NewResolver creates a Resolver. A nil logger discards output.
func NewResolver(s Searcher, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	var keywords []string
	keywords = append(keywords, Languages...)
	keywords = append(keywords, Frameworks...)
	keywords = append(keywords, Libraries...)

	patterns := make([]*regexp2.Regexp, len(keywords))
	for i, kw := range keywords {
		patterns[i] = regexp2.MustCompile(keywordPattern(kw), regexp2.None)
	}
	return &Resolver{searcher: s, keywords: keywords, patterns: patterns, logger: logger}
}

// keywordPattern anchors kw on word boundaries. Edges that are symbols, like
// the pluses in c++, use lookarounds instead since \b never matches there.
func keywordPattern(kw string) string {
	var sb strings.Builder
	if isWordRune(rune(kw[0])) {
		sb.WriteString(`\b`)
	} else {
		sb.WriteString(`(?<!\w)`)
	}
	sb.WriteString(regexp2.Escape(kw))
	if isWordRune(rune(kw[len(kw)-1])) {
		sb.WriteString(`\b`)
	} else {
		sb.WriteString(`(?!\w)`)
	}
	return sb.String()
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// ExtractKeywords returns up to three known keywords found in question, in
// keyword list order.
func (r *Resolver) ExtractKeywords(question string) []string {
	lower := strings.ToLower(question)
	var found []string
	for i, re := range r.patterns {
		ok, err := re.MatchString(lower)
		if err != nil || !ok {
			continue
		}
		found = append(found, r.keywords[i])
		if len(found) == maxKeywords {
			break
		}
	}
	return found
}

// Confidence scores how well lib matches keywords, from 0 to 1.
func Confidence(lib Library, keywords []string) float64 {
	name := strings.ToLower(lib.DisplayName())
	description := strings.ToLower(lib.Description)

	score := 0.0
	for _, kw := range keywords {
		if strings.Contains(name, kw) {
			score += 0.5
		}
		if strings.Contains(description, kw) {
			score += 0.3
		}
	}
	if len(keywords) > 0 {
		score += min(lib.Popularity/100, 0.2)
	}
	return min(score, 1.0)
}

// ConfidenceLevel labels a score as high, medium or low.
func ConfidenceLevel(score float64) string {
	switch {
	case score >= 0.8:
		return LevelHigh
	case score >= 0.5:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Resolve searches once per keyword in question and returns the best scoring
// library. Failed searches are skipped. It returns ("", 0) when nothing
// matches.
func (r *Resolver) Resolve(ctx context.Context, question string) (string, float64) {
	keywords := r.ExtractKeywords(question)
	if len(keywords) == 0 {
		return "", 0
	}

	results := make([][]Library, len(keywords))
	var g errgroup.Group
	for i, kw := range keywords {
		g.Go(func() error {
			libs, err := r.searcher.SearchLibrary(ctx, kw, question)
			if err != nil {
				r.logger.Debug("Library search failed", zap.String("keyword", kw), zap.Error(err))
				return nil
			}
			results[i] = libs
			return nil
		})
	}
	_ = g.Wait()

	var (
		bestID    string
		bestScore float64
		found     bool
	)
	for _, libs := range results {
		for _, lib := range libs {
			score := Confidence(lib, keywords)
			if !found || score > bestScore {
				bestID, bestScore, found = lib.ID, score, true
			}
		}
	}
	if !found {
		return "", 0
	}
	r.logger.Debug("Resolved library",
		zap.Strings("keywords", keywords),
		zap.String("library", bestID),
		zap.Float64("confidence", bestScore))
	return bestID, bestScore
}
