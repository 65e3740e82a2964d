package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/creative-scorer/internal/recommend"
	"github.com/ZanzyTHEbar/creative-scorer/internal/signals"
)

// funnelCriticalPillars are the pillars that decide fit for a funnel stage
var funnelCriticalPillars = map[string][]string{
	"awareness":     {PillarAttention, PillarBrand},
	"consideration": {PillarMessage, PillarEmotion, PillarCultural},
	"conversion":    {PillarAction, PillarMessage},
}

// platformRequirements are the minimum pillar scores a platform rewards
var platformRequirements = map[string]map[string]float64{
	"instagram": {PillarAttention: 70, PillarEmotion: 60},
	"youtube":   {PillarEmotion: 65, PillarBrand: 60},
	"facebook":  {PillarMessage: 65, PillarAction: 60},
	"search":    {PillarMessage: 70, PillarAction: 70},
}

const defaultPlatformFit = 70.0

// AggregateInput carries everything the final aggregation needs
type AggregateInput struct {
	Pillars        []PillarResult
	Weights        WeightSet
	Coverage       signals.CoverageReport
	Warnings       []string
	Contradictions []string
	Context        Context
	TopFix         *recommend.Recommendation
}

// Aggregate combines pillar scores into the final result
func Aggregate(in AggregateInput) FinalScoreResult {
	var overall, lower, upper float64
	completeness := make([]float64, 0, len(in.Pillars))
	confidences := make([]float64, 0, len(in.Pillars))
	pillars := make(map[string]PillarResult, len(in.Pillars))

	for _, p := range in.Pillars {
		w := in.Weights[p.Name]
		uncertainty := (1 - p.ConfidenceScore) * 10
		overall += p.Score * w
		lower += (p.Score - uncertainty) * w
		upper += (p.Score + uncertainty) * w

		completeness = append(completeness, p.DataCompleteness)
		confidences = append(confidences, p.ConfidenceScore)
		pillars[p.Name] = p
	}

	quality := in.Coverage.Mean()*0.4 + mean(completeness)*0.4 + mean(confidences)*0.2

	weights := make(map[string]float64, len(in.Weights))
	for k, v := range in.Weights {
		weights[k] = round3(v)
	}

	result := FinalScoreResult{
		OverallScore:     round1(clip(overall, 0, 100)),
		ConfidenceBand:   Band{Low: round1(clip(lower, 0, 100)), High: round1(clip(upper, 0, 100))},
		Pillars:          pillars,
		Weights:          weights,
		FunnelFit:        funnelFit(in.Pillars, in.Context.FunnelStage),
		PlatformFit:      platformFit(in.Pillars, in.Context.Platform),
		Warnings:         nonNil(in.Warnings),
		Contradictions:   nonNil(in.Contradictions),
		DataQualityScore: round3(clip(quality, 0, 1)),
		Context:          in.Context,
	}
	result.ConfidenceLevel = overallConfidence(in.Pillars, result.DataQualityScore, len(result.Contradictions) > 0, true)
	result.DecisionSummary = decisionSummary(result, in.Pillars, in.TopFix)

	return result
}

// MergeFindings folds external validation findings into the result and
// re-derives the overall confidence level. A failed sanity check caps
// confidence at MEDIUM.
func (r *FinalScoreResult) MergeFindings(contradictions, warnings []string, sanityPassed bool) {
	r.Contradictions = append(r.Contradictions, contradictions...)
	r.Warnings = append(r.Warnings, warnings...)

	pillars := make([]PillarResult, 0, len(r.Pillars))
	for _, name := range sortedPillarNames(r.Pillars) {
		pillars = append(pillars, r.Pillars[name])
	}
	r.ConfidenceLevel = overallConfidence(pillars, r.DataQualityScore, len(r.Contradictions) > 0, sanityPassed)
}

func overallConfidence(pillars []PillarResult, quality float64, contradicted, sane bool) ConfidenceLevel {
	low := 0
	for _, p := range pillars {
		if p.ConfidenceLevel == ConfidenceLow {
			low++
		}
	}
	if low >= 3 {
		return ConfidenceLow
	}

	switch {
	case quality >= highConfidence && !contradicted && sane:
		return ConfidenceHigh
	case quality >= mediumConfidence:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func funnelFit(pillars []PillarResult, stage string) float64 {
	scores := scoresByName(pillars)
	var all []string
	for _, p := range pillars {
		all = append(all, p.Name)
	}

	critical, ok := funnelCriticalPillars[strings.ToLower(stage)]
	if !ok {
		critical = all
	}
	if len(critical) == 0 {
		return neutralScore
	}

	sum := 0.0
	for _, name := range critical {
		if s, ok := scores[name]; ok {
			sum += s
		} else {
			sum += neutralScore
		}
	}
	return round1(sum / float64(len(critical)))
}

func platformFit(pillars []PillarResult, platform string) float64 {
	reqs, ok := platformRequirements[strings.ToLower(platform)]
	if !ok {
		return defaultPlatformFit
	}
	return fitAgainst(pillars, reqs)
}

func fitAgainst(pillars []PillarResult, reqs map[string]float64) float64 {
	scores := scoresByName(pillars)

	names := make([]string, 0, len(reqs))
	for name := range reqs {
		names = append(names, name)
	}
	sort.Strings(names)

	total := 0.0
	for _, name := range names {
		threshold := reqs[name]
		actual, ok := scores[name]
		if !ok {
			actual = neutralScore
		}
		if actual >= threshold {
			total += 100
		} else {
			total += actual / threshold * 100
		}
	}
	return round1(total / float64(len(names)))
}

// bestPlatform returns the known platform the pillars fit best
func bestPlatform(pillars []PillarResult) (string, float64) {
	names := make([]string, 0, len(platformRequirements))
	for name := range platformRequirements {
		names = append(names, name)
	}
	sort.Strings(names)

	best, bestFit := "", -1.0
	for _, name := range names {
		if fit := fitAgainst(pillars, platformRequirements[name]); fit > bestFit {
			best, bestFit = name, fit
		}
	}
	return best, bestFit
}

func decisionSummary(r FinalScoreResult, pillars []PillarResult, top *recommend.Recommendation) map[string]string {
	ranked := append([]PillarResult(nil), pillars...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	describe := func(ps []PillarResult) string {
		parts := make([]string, 0, len(ps))
		for _, p := range ps {
			parts = append(parts, fmt.Sprintf("%s (%.0f)", titleize(p.Name), p.Score))
		}
		return strings.Join(parts, ", ")
	}

	summary := map[string]string{}
	if len(ranked) == 0 {
		summary["run_decision"] = runDecision(r.OverallScore)
		return summary
	}

	n := min(2, len(ranked))
	strongest := ranked[:n]
	weakest := make([]PillarResult, 0, n)
	for i := len(ranked) - 1; i >= len(ranked)-n; i-- {
		weakest = append(weakest, ranked[i])
	}

	summary["strongest_pillars"] = describe(strongest)
	summary["weakest_pillars"] = describe(weakest)
	summary["run_decision"] = runDecision(r.OverallScore)
	summary["platform_fit"] = platformNote(r, pillars)

	if r.OverallScore >= 65 {
		summary["success_rationale"] = fmt.Sprintf("Strong %s will resonate", strings.ToLower(describe(strongest)))
	} else {
		summary["success_rationale"] = fmt.Sprintf("Address weak %s for better performance", strings.ToLower(titleize(weakest[0].Name)))
	}

	if top != nil {
		summary["priority_improvement"] = fmt.Sprintf("%s (%s)", top.FixText, top.Signal)
		summary["expected_uplift"] = fmt.Sprintf("+%.1f pts from top fix", top.EstimatedUplift)
	} else {
		worst := weakest[0]
		summary["priority_improvement"] = worst.Explanation.FixFirst
		summary["expected_uplift"] = fmt.Sprintf("+%.1f pts from top fix", worst.Explanation.ExpectedFixImpact)
	}

	return summary
}

func runDecision(overall float64) string {
	switch {
	case overall >= 70:
		return "Strong candidate for deployment"
	case overall >= 55:
		return "Deploy with optimization recommendations applied"
	default:
		return "Significant revision needed before deployment"
	}
}

func platformNote(r FinalScoreResult, pillars []PillarResult) string {
	platform := strings.ToLower(r.Context.Platform)
	if _, known := platformRequirements[platform]; !known {
		best, fit := bestPlatform(pillars)
		return fmt.Sprintf("Consider %s based on strengths (fit %.0f/100)", titleize(best), fit)
	}

	quality := "Weak"
	switch {
	case r.PlatformFit >= 80:
		quality = "Strong"
	case r.PlatformFit >= 60:
		quality = "Adequate"
	}
	return fmt.Sprintf("%s fit for %s (%.0f/100)", quality, titleize(platform), r.PlatformFit)
}

func sortedPillarNames(m map[string]PillarResult) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func nonNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
