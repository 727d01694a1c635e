package book

import "fmt"

// Layout names a fixed grid arrangement valid for a specific photo count.
type Layout string

const (
	LayoutSingle        Layout = "single"         // 1 photo, full area
	LayoutTwoHorizontal Layout = "two-horizontal" // 2 photos side by side
	LayoutTwoVertical   Layout = "two-vertical"   // 2 photos stacked
	LayoutThreeLeft     Layout = "three-left"     // 1 large left, 2 small right
	LayoutThreeRight    Layout = "three-right"    // 2 small left, 1 large right
	LayoutThreeTop      Layout = "three-top"      // 1 large top, 2 small bottom
	LayoutThreeBottom   Layout = "three-bottom"   // 2 small top, 1 large bottom
	LayoutFourGrid      Layout = "four-grid"      // 2x2 grid
)

// Geometry describes a layout as grid tracks plus named-area rows. Area
// names are "photo1".."photo4", 1-based into the page's photo list. An
// unsupported photo count resolves to the zero Geometry.
type Geometry struct {
	Columns []string   `json:"columns"`
	Rows    []string   `json:"rows"`
	Areas   [][]string `json:"areas"`
}

// Empty reports whether the geometry carries no layout at all.
func (g Geometry) Empty() bool {
	return len(g.Areas) == 0
}

var geometries = map[Layout]Geometry{
	LayoutSingle: {
		Columns: []string{"1fr"},
		Rows:    []string{"1fr"},
		Areas:   [][]string{{"photo1"}},
	},
	LayoutTwoHorizontal: {
		Columns: []string{"1fr", "1fr"},
		Rows:    []string{"1fr"},
		Areas:   [][]string{{"photo1", "photo2"}},
	},
	LayoutTwoVertical: {
		Columns: []string{"1fr"},
		Rows:    []string{"1fr", "1fr"},
		Areas:   [][]string{{"photo1"}, {"photo2"}},
	},
	LayoutThreeLeft: {
		Columns: []string{"2fr", "1fr"},
		Rows:    []string{"1fr", "1fr"},
		Areas:   [][]string{{"photo1", "photo2"}, {"photo1", "photo3"}},
	},
	LayoutThreeRight: {
		Columns: []string{"1fr", "2fr"},
		Rows:    []string{"1fr", "1fr"},
		Areas:   [][]string{{"photo1", "photo3"}, {"photo2", "photo3"}},
	},
	LayoutThreeTop: {
		Columns: []string{"1fr", "1fr"},
		Rows:    []string{"2fr", "1fr"},
		Areas:   [][]string{{"photo1", "photo1"}, {"photo2", "photo3"}},
	},
	LayoutThreeBottom: {
		Columns: []string{"1fr", "1fr"},
		Rows:    []string{"1fr", "2fr"},
		Areas:   [][]string{{"photo1", "photo2"}, {"photo3", "photo3"}},
	},
	LayoutFourGrid: {
		Columns: []string{"1fr", "1fr"},
		Rows:    []string{"1fr", "1fr"},
		Areas:   [][]string{{"photo1", "photo2"}, {"photo3", "photo4"}},
	},
}

var variantsByCount = map[int][]Layout{
	1: {LayoutSingle},
	2: {LayoutTwoHorizontal, LayoutTwoVertical},
	3: {LayoutThreeLeft, LayoutThreeRight, LayoutThreeTop, LayoutThreeBottom},
	4: {LayoutFourGrid},
}

// VariantsFor returns the layouts valid for the given photo count, in
// presentation order. Counts outside 1-4 have no variants.
func VariantsFor(count int) []Layout {
	return variantsByCount[count]
}

// DefaultLayout returns the variant a page falls back to for the given photo
// count. Empty pages keep the single-photo default as a placeholder.
func DefaultLayout(count int) Layout {
	switch count {
	case 2:
		return LayoutTwoHorizontal
	case 3:
		return LayoutThreeLeft
	case 4:
		return LayoutFourGrid
	default:
		return LayoutSingle
	}
}

// ValidLayout reports whether the variant is in the valid set for count.
func ValidLayout(count int, layout Layout) bool {
	for _, v := range variantsByCount[count] {
		if v == layout {
			return true
		}
	}
	return false
}

// Resolve maps a photo count and variant to grid geometry. A count outside
// 1-4 yields the empty geometry (the caller shows a placeholder). A variant
// that is not valid for an in-range count is a programming error upstream
// and fails loudly rather than defaulting.
func Resolve(count int, layout Layout) (Geometry, error) {
	if count < 1 || count > MaxPhotosPerPage {
		return Geometry{}, nil
	}
	if !ValidLayout(count, layout) {
		return Geometry{}, fmt.Errorf("layout %q is not valid for %d photos", layout, count)
	}
	return geometries[layout], nil
}
