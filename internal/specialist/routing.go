package specialist

import (
	"github.com/dshills/panel/internal/diffctx"
	"github.com/dshills/panel/internal/review"
)

var (
	typedExtensions = []string{".ts", ".tsx", ".mts", ".cts"}
	reactExtensions = []string{".jsx", ".tsx"}
	perfKeywords    = []string{"useEffect", "useState", "useMemo", "useCallback", "map(", "render"}
	reactKeywords   = []string{"React", "Component", "Hook", "jsx", "tsx"}
)

// Relevant reports whether the diff contains anything for the category's
// specialist to look at. It has no side effects.
func Relevant(c review.Category, d *diffctx.Context) bool {
	if d.IsEmpty() {
		return false
	}
	switch c {
	case review.CategoryTypeSafety:
		return d.HasExtension(typedExtensions...)
	case review.CategoryPerformance:
		return d.ContainsAny(perfKeywords...)
	case review.CategoryUXReact:
		return d.HasExtension(reactExtensions...) || d.ContainsAny(reactKeywords...)
	}
	return true
}
