package differentiation

import (
	"fmt"
	"math"
	"strings"
)

// Scene types that read as stock imagery
var commonScenes = map[string]bool{
	"studio":           true,
	"white_background": true,
	"stock":            true,
}

const (
	meTooThreshold    = 40.0
	meTooGenericCount = 3
	localeRelevant    = 60.0
)

// Input is the copy and signal data the analyzer reads
type Input struct {
	Text      string             `json:"text"`
	SceneType string             `json:"scene_type,omitempty"`
	Values    map[string]float64 `json:"signals"`
}

// Result is the distinctiveness verdict for one creative
type Result struct {
	DistinctivenessScore    float64  `json:"distinctiveness_score" yaml:"distinctiveness_score"`
	IsMeToo                 bool     `json:"is_me_too" yaml:"is_me_too"`
	GenericClaimCount       int      `json:"generic_claim_count" yaml:"generic_claim_count"`
	GenericClaims           []string `json:"generic_claims" yaml:"generic_claims"`
	CommodityPhraseCount    int      `json:"commodity_phrase_count" yaml:"commodity_phrase_count"`
	CommodityPhrases        []string `json:"commodity_phrases" yaml:"commodity_phrases"`
	LocaleTropes            []string `json:"locale_tropes" yaml:"locale_tropes"`
	VisualUniqueness        float64  `json:"visual_uniqueness" yaml:"visual_uniqueness"`
	CategoryDistinctiveness float64  `json:"category_distinctiveness" yaml:"category_distinctiveness"`
	Suggestions             []string `json:"suggestions" yaml:"suggestions"`
	RulesVersion            string   `json:"rules_version" yaml:"rules_version"`
}

// Analyzer scores how far a creative stands apart from category defaults
type Analyzer struct {
	rules *Rules
}

// NewAnalyzer creates an analyzer over a compiled rule set
func NewAnalyzer(rules *Rules) *Analyzer {
	return &Analyzer{rules: rules}
}

// Rules returns the active rule set
func (a *Analyzer) Rules() *Rules {
	return a.rules
}

// Analyze runs phrase detection and the distinctiveness heuristics
func (a *Analyzer) Analyze(in Input) Result {
	get := func(name string, def float64) float64 {
		if v, ok := in.Values[name]; ok && !math.IsNaN(v) {
			return v
		}
		return def
	}

	generic := matches(a.rules.generic, in.Text)
	commodity := matches(a.rules.commodity, in.Text)
	tropes := matches(a.rules.tropes, in.Text)

	specificity := get("claim_specificity", 50)
	visual := VisualUniqueness(in.SceneType, get("face_count", 0), get("narrative_present", 0), get("emotional_appeal", 50))
	category := CategoryDistinctiveness(get("india_relevance", 50), get("claim_credibility", 50))
	score := Distinctiveness(len(generic), len(commodity), specificity, visual, category)

	return Result{
		DistinctivenessScore:    round1(score),
		IsMeToo:                 IsMeToo(score, len(generic)),
		GenericClaimCount:       len(generic),
		GenericClaims:           generic,
		CommodityPhraseCount:    len(commodity),
		CommodityPhrases:        commodity,
		LocaleTropes:            tropes,
		VisualUniqueness:        round1(visual),
		CategoryDistinctiveness: round1(category),
		Suggestions:             suggestions(generic, commodity, tropes, specificity),
		RulesVersion:            a.rules.Version,
	}
}

// Distinctiveness combines phrase counts and sub-scores into 0-100
func Distinctiveness(genericCount, commodityCount int, specificity, visual, category float64) float64 {
	score := 60.0
	score -= float64(genericCount) * 12
	score -= float64(commodityCount) * 5
	score += (specificity - 50) * 0.3
	score += (visual - 50) * 0.2
	score += (category - 50) * 0.2
	return clamp(score)
}

// IsMeToo flags low distinctiveness or heavy use of generic claims
func IsMeToo(distinctiveness float64, genericCount int) bool {
	return distinctiveness < meTooThreshold || genericCount >= meTooGenericCount
}

// VisualUniqueness rewards non-stock scenes, people, narrative and emotion
func VisualUniqueness(sceneType string, faces, narrative, emotionalAppeal float64) float64 {
	score := 50.0
	if !commonScenes[strings.ToLower(sceneType)] {
		score += 10
	}
	if faces > 0 {
		score += 15
	}
	if narrative > 0 {
		score += 20
	}
	score += (emotionalAppeal - 50) * 0.1
	return clamp(score)
}

// CategoryDistinctiveness rewards locale relevance and credible claims
func CategoryDistinctiveness(localeRelevance, credibility float64) float64 {
	score := 50.0
	if localeRelevance > localeRelevant {
		score += 15
	}
	score += (credibility - 50) * 0.2
	return clamp(score)
}

func suggestions(generic, commodity, tropes []string, specificity float64) []string {
	var out []string
	if len(generic) > 0 {
		shown := generic
		if len(shown) > 2 {
			shown = shown[:2]
		}
		out = append(out, fmt.Sprintf("Replace generic claims (%s) with specific, provable benefits", strings.Join(shown, ", ")))
	}
	if len(commodity) > 0 {
		out = append(out, "Replace commodity CTAs with brand-specific action language")
	}
	if len(tropes) > 0 {
		out = append(out, "Ground local appeal in a concrete story instead of stock locale phrases")
	}
	if specificity < 50 {
		out = append(out, "Add specific numbers, percentages, or proof points to claims")
	}
	if len(out) == 0 {
		out = append(out, "Strong differentiation - maintain current approach")
	}
	return out
}

func clamp(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
