package filter

import (
	"regexp"
	"strings"
	"unicode"
)

// synonyms expand common shopping criteria to the spellings found in catalogs.
var synonyms = map[string]*regexp.Regexp{
	"waterproof":      regexp.MustCompile(`water[-\s]?(proof|resistant|repellent)`),
	"water resistant": regexp.MustCompile(`water[-\s]?(proof|resistant|repellent)`),
	"weatherproof":    regexp.MustCompile(`weather[-\s]?(proof|resistant)`),
	"dustproof":       regexp.MustCompile(`dust[-\s]?(proof|resistant)`),
	"shockproof":      regexp.MustCompile(`shock[-\s]?(proof|resistant)`),
	"lightweight":     regexp.MustCompile(`(light[-\s]?weight|ultra[-\s]?light)`),
	"heavy duty":      regexp.MustCompile(`heavy[-\s]?duty`),
	"portable":        regexp.MustCompile(`portable`),
	"wireless":        regexp.MustCompile(`wireless|wi[-\s]?fi|bluetooth`),
	"rechargeable":    regexp.MustCompile(`rechargeable|battery`),
	"eco friendly":    regexp.MustCompile(`eco[-\s]?friendly|sustainable|green|environmentally`),
	"organic":         regexp.MustCompile(`organic|natural`),
	"vegan":           regexp.MustCompile(`vegan|plant[-\s]?based`),
	"gluten free":     regexp.MustCompile(`gluten[-\s]?free`),
	"biodegradable":   regexp.MustCompile(`bio[-\s]?degradable`),
	"recyclable":      regexp.MustCompile(`recyclable|recycled`),
	"premium":         regexp.MustCompile(`premium|luxury|high[-\s]?end`),
	"budget":          regexp.MustCompile(`budget|affordable|cheap|economy`),
	"bestseller":      regexp.MustCompile(`best[-\s]?seller|popular|top[-\s]?rated`),
	"new":             regexp.MustCompile(`new|latest|recent`),
	"vintage":         regexp.MustCompile(`vintage|retro|classic`),
	"limited edition": regexp.MustCompile(`limited[-\s]?edition|exclusive`),
	"handmade":        regexp.MustCompile(`hand[-\s]?made|artisan|craft`),
	"professional":    regexp.MustCompile(`professional|pro[-\s]?grade`),
	"beginner":        regexp.MustCompile(`beginner|entry[-\s]?level|starter`),
	"compact":         regexp.MustCompile(`compact|small|mini`),
	"large":           regexp.MustCompile(`large|big|jumbo|xl`),
	"durable":         regexp.MustCompile(`durable|long[-\s]?lasting|robust`),
	"fast":            regexp.MustCompile(`fast|quick|rapid|speedy`),
	"quiet":           regexp.MustCompile(`quiet|silent|noise[-\s]?less`),
	"smart":           regexp.MustCompile(`smart|intelligent|ai[-\s]?powered`),
}

// Matcher tests lowercased text against one criteria string.
type Matcher struct {
	re *regexp.Regexp
}

// NewMatcher resolves criteria to a synonym pattern or, failing that, to a
// literal match where spaces and hyphens between words are optional and
// interchangeable.
func NewMatcher(criteria string) *Matcher {
	key := strings.Join(strings.Fields(strings.ToLower(criteria)), " ")
	if re, ok := synonyms[key]; ok {
		return &Matcher{re: re}
	}

	words := strings.FieldsFunc(key, func(r rune) bool {
		return r == '-' || unicode.IsSpace(r)
	})
	if !strings.ContainsFunc(key, isWordRune) {
		return &Matcher{}
	}
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	// QuoteMeta output always compiles.
	return &Matcher{re: regexp.MustCompile(strings.Join(words, `[-\s]?`))}
}

// Match reports whether text contains the criteria, case-insensitively.
func (m *Matcher) Match(text string) bool {
	if m.re == nil || text == "" {
		return false
	}
	return m.re.MatchString(strings.ToLower(text))
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
