package recommend

// Difficulty is the estimated effort of applying a fix
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) rank() int {
	switch d {
	case DifficultyEasy:
		return 0
	case DifficultyMedium:
		return 1
	case DifficultyHard:
		return 2
	}
	return 3
}

// Template describes how to fix a weak signal
type Template struct {
	Category   string     `json:"category" yaml:"category"`
	Fix        string     `json:"fix" yaml:"fix"`
	Example    string     `json:"example" yaml:"example"`
	Difficulty Difficulty `json:"difficulty" yaml:"difficulty"`
	// Target is the value to aim for when no category benchmark exists
	Target float64 `json:"target" yaml:"target"`
	// Inverted signals improve as they go down
	Inverted bool `json:"inverted,omitempty" yaml:"inverted,omitempty"`
}

const defaultTarget = 70.0

// DefaultTemplates is the built-in fix catalogue, keyed by signal name
var DefaultTemplates = map[string]Template{
	"contrast_rms": {
		Category:   "visual",
		Fix:        "Increase contrast between text and background",
		Example:    "Use darker text on light backgrounds or add subtle text shadows",
		Difficulty: DifficultyEasy,
		Target:     60,
	},
	"cta_present": {
		Category:   "copy",
		Fix:        "Add a clear call-to-action",
		Example:    "Include 'Shop Now', 'Learn More', or 'Get Started' button",
		Difficulty: DifficultyEasy,
		Target:     100,
	},
	"cta_prominence": {
		Category:   "layout",
		Fix:        "Make the CTA more visually prominent",
		Example:    "Increase CTA size, use contrasting color, position in lower-right",
		Difficulty: DifficultyEasy,
		Target:     defaultTarget,
	},
	"claim_specificity": {
		Category:   "copy",
		Fix:        "Replace generic claims with specific benefits",
		Example:    "Change 'Best Quality' to '30% longer lasting than competitors'",
		Difficulty: DifficultyMedium,
		Target:     70,
	},
	"india_relevance": {
		Category:   "cultural",
		Fix:        "Incorporate India-specific context and references",
		Example:    "Use local settings, festivals, or culturally relevant imagery",
		Difficulty: DifficultyMedium,
		Target:     70,
	},
	"logo_visible": {
		Category:   "brand",
		Fix:        "Add or increase logo visibility",
		Example:    "Position logo in top-left or bottom-right corner with adequate size",
		Difficulty: DifficultyEasy,
		Target:     100,
	},
	"white_space_percentage": {
		Category:   "layout",
		Fix:        "Increase breathing room around key elements",
		Example:    "Add margins around text blocks, reduce element density",
		Difficulty: DifficultyMedium,
		Target:     25,
	},
	"cognitive_load": {
		Category:   "layout",
		Fix:        "Simplify the visual composition",
		Example:    "Reduce text, remove secondary elements, focus on one key message",
		Difficulty: DifficultyMedium,
		Target:     40,
		Inverted:   true,
	},
	"emotional_appeal": {
		Category:   "creative",
		Fix:        "Add emotional triggers to the creative",
		Example:    "Include people showing genuine emotions, lifestyle imagery",
		Difficulty: DifficultyHard,
		Target:     defaultTarget,
	},
	"trust_marker_count": {
		Category:   "copy",
		Fix:        "Add trust-building elements",
		Example:    "Include certifications, testimonials, 'As seen in', ratings",
		Difficulty: DifficultyMedium,
		Target:     defaultTarget,
	},
	"face_count": {
		Category:   "creative",
		Fix:        "Include human faces for better connection",
		Example:    "Add person using product with positive expression",
		Difficulty: DifficultyHard,
		Target:     50,
	},
	"story_clarity": {
		Category:   "creative",
		Fix:        "Create a clearer visual narrative",
		Example:    "Show before/after, problem/solution, or journey sequence",
		Difficulty: DifficultyHard,
		Target:     defaultTarget,
	},
}
