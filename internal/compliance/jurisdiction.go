package compliance

import "strings"

// JurisdictionClassifier decides which privacy regimes apply to a lead based
// on its free-text location.
type JurisdictionClassifier interface {
	IsCaliforniaResident(location string) bool
	IsEUResident(location string) bool
}

// KeywordClassifier is a heuristic over the CRM's free-text location field.
// It is deliberately over-inclusive: matching a keyword makes the stricter
// regime apply, and a false positive only means asking for consent that was
// not strictly required.
type KeywordClassifier struct{}

var californiaKeywords = []string{
	"california", ", ca", " ca ",
	"los angeles", "san francisco", "san diego", "san jose",
	"sacramento", "oakland", "fresno", "long beach",
}

var euKeywords = []string{
	"austria", "belgium", "bulgaria", "croatia", "cyprus", "czech",
	"denmark", "estonia", "finland", "france", "germany", "greece",
	"hungary", "ireland", "italy", "latvia", "lithuania", "luxembourg",
	"malta", "netherlands", "poland", "portugal", "romania", "slovakia",
	"slovenia", "spain", "sweden",
	"berlin", "paris", "madrid", "rome", "amsterdam", "vienna",
	"dublin", "lisbon", "warsaw", "brussels",
}

func (KeywordClassifier) IsCaliforniaResident(location string) bool {
	return matchesAny(location, californiaKeywords)
}

func (KeywordClassifier) IsEUResident(location string) bool {
	return matchesAny(location, euKeywords)
}

func matchesAny(location string, keywords []string) bool {
	loc := " " + strings.ToLower(strings.TrimSpace(location)) + " "
	for _, kw := range keywords {
		if strings.Contains(loc, kw) {
			return true
		}
	}
	return false
}
