package specialist

import "github.com/dshills/panel/internal/review"

// Profile describes one specialist.
type Profile struct {
	Category    review.Category `json:"category" yaml:"category"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	FocusAreas  []string        `json:"focusAreas" yaml:"focus_areas"`
}

var profiles = map[review.Category]Profile{
	review.CategoryPerformance: {
		Category:    review.CategoryPerformance,
		Name:        "Performance Specialist",
		Description: "Detects performance bottlenecks",
		FocusAreas:  []string{"Re-renders", "Memoization", "Algorithms", "Memory Leaks"},
	},
	review.CategoryTypeSafety: {
		Category:    review.CategoryTypeSafety,
		Name:        "TypeScript Safety Specialist",
		Description: "Ensures type correctness",
		FocusAreas:  []string{"Type Assertions", "Any Usage", "Null Safety", "Generics"},
	},
	review.CategoryUXReact: {
		Category:    review.CategoryUXReact,
		Name:        "React & UX Specialist",
		Description: "Reviews React patterns and accessibility",
		FocusAreas:  []string{"Hooks", "Accessibility", "Component Design", "UX"},
	},
	review.CategoryLogic: {
		Category:    review.CategoryLogic,
		Name:        "Logic & Code Quality Specialist",
		Description: "Analyzes business logic and code quality",
		FocusAreas:  []string{"Logic Bugs", "Error Handling", "Edge Cases", "Maintainability"},
	},
	review.CategoryOther: {
		Category:    review.CategoryOther,
		Name:        "General Reviewer",
		Description: "Covers issues outside the other specialists' areas",
		FocusAreas:  []string{"Security", "Testing", "Configuration", "Documentation"},
	},
}

// ProfileFor returns the profile of a category's specialist.
func ProfileFor(c review.Category) (Profile, bool) {
	p, ok := profiles[c]
	return p, ok
}

// Profiles returns every profile in category declaration order.
func Profiles() []Profile {
	out := make([]Profile, 0, len(review.Categories))
	for _, c := range review.Categories {
		out = append(out, profiles[c])
	}
	return out
}
