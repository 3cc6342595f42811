package llm

import "strings"

// Category selects the prompt flavor and the fallback text of a request.
type Category string

const (
	CategoryRaid        Category = "raid"
	CategoryDeath       Category = "death"
	CategoryRecruitment Category = "recruitment"
	CategoryArtifact    Category = "artifact"
	CategoryArrival     Category = "arrival"
	CategoryNemesis     Category = "nemesis"
	CategoryChoice      Category = "choice"
	CategoryOther       Category = "other"
)

// ParseCategory maps a free-form incident category to a Category.
// Unrecognized names map to CategoryOther.
func ParseCategory(s string) Category {
	c, _ := LookupCategory(s)
	return c
}

// LookupCategory is ParseCategory that also reports whether s named a known
// category. "other" itself is known.
func LookupCategory(s string) (Category, bool) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryRaid, CategoryDeath, CategoryRecruitment, CategoryArtifact,
		CategoryArrival, CategoryNemesis, CategoryChoice, CategoryOther:
		return c, true
	}
	return CategoryOther, false
}

// Fallbacks holds canned text used when generation is unavailable.
type Fallbacks map[Category][]string

// DefaultFallbacks returns the built-in fallback table.
func DefaultFallbacks() Fallbacks {
	return Fallbacks{
		CategoryRaid: {
			"Raiders crest the ridge. The colony braces for what comes next.",
			"Smoke on the horizon: another band has come to test the walls.",
		},
		CategoryDeath: {
			"The colony buries one of its own. The work goes on, quieter than before.",
		},
		CategoryRecruitment: {
			"A new face joins the colony, carrying a past no one asks about yet.",
		},
		CategoryArtifact: {
			"Something finely made leaves the workbench. It will outlast its maker.",
		},
		CategoryArrival: {
			"Strangers arrive at the edge of the colony.",
		},
		CategoryNemesis: {
			"A familiar enemy returns, and they have not forgotten.",
		},
		CategoryChoice: {
			"The day passes without a decision to make.",
		},
		CategoryOther: {
			"Another day passes in the colony.",
		},
	}
}

// Merge returns a copy of f with the non-empty categories of other replacing its own.
func (f Fallbacks) Merge(other Fallbacks) Fallbacks {
	out := make(Fallbacks, len(f)+len(other))
	for c, v := range f {
		out[c] = v
	}
	for c, v := range other {
		var kept []string
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				kept = append(kept, s)
			}
		}
		if len(kept) > 0 {
			out[c] = kept
		}
	}
	return out
}

// Text returns the fallback for a category on a day. Several variants rotate
// by day, so the same category and day always give the same text.
func (f Fallbacks) Text(c Category, day int) string {
	variants := f[c]
	if len(variants) == 0 {
		variants = f[CategoryOther]
	}
	if len(variants) == 0 {
		return ""
	}
	if day < 0 {
		day = -day
	}
	return variants[day%len(variants)]
}
