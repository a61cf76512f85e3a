package metrics

import (
	"sort"
	"strings"
)

// Lexicon holds the word sets used for counting. Markers may contain
// several words; they are matched on whole-word boundaries.
type Lexicon struct {
	Lang       string
	Fillers    map[string]struct{}
	Cohesion   []string
	Complexity []string
}

var italianFillers = []string{"eh", "ehm", "mmm", "cioè", "allora", "dunque", "tipo", "insomma"}

var italianCohesion = []string{
	"inoltre", "per quanto riguarda", "tuttavia", "ciò nonostante", "in definitiva",
	"da un lato", "dall’altro", "a mio avviso", "tenuto conto di", "a quanto pare",
	"presumibilmente", "parrebbe che", "pertanto", "quindi", "invece", "comunque",
}

// Relative-clause and conditional markers. Counting them is a rough
// heuristic for syntactic complexity, not a parse.
var italianComplexity = []string{
	"che", "cui", "nella quale", "nei quali",
	"se", "qualora",
}

// Italian returns the default lexicon for Italian learners.
func Italian() Lexicon {
	return Lexicon{
		Lang:       "it",
		Fillers:    toSet(italianFillers),
		Cohesion:   append([]string(nil), italianCohesion...),
		Complexity: append([]string(nil), italianComplexity...),
	}
}

// Extend returns a copy of the lexicon with extra fillers and cohesion markers.
func (l Lexicon) Extend(fillers, cohesion []string) Lexicon {
	out := Lexicon{
		Lang:       l.Lang,
		Fillers:    make(map[string]struct{}, len(l.Fillers)+len(fillers)),
		Cohesion:   append([]string(nil), l.Cohesion...),
		Complexity: append([]string(nil), l.Complexity...),
	}
	for f := range l.Fillers {
		out.Fillers[f] = struct{}{}
	}
	for _, f := range fillers {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			out.Fillers[f] = struct{}{}
		}
	}
	seen := toSet(out.Cohesion)
	for _, c := range cohesion {
		c = strings.ToLower(strings.Join(strings.Fields(c), " "))
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out.Cohesion = append(out.Cohesion, c)
	}
	return out
}

// FillerList returns the fillers in sorted order.
func (l Lexicon) FillerList() []string {
	out := make([]string, 0, len(l.Fillers))
	for f := range l.Fillers {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
