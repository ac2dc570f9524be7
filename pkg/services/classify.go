package services

import (
	"regexp"
	"strings"

	"github.com/scrutinise/ownership-engine/pkg/models"
)

// companySuffixes mark a shareholder name as a corporate entity when they
// terminate the name.
var companySuffixes = []string{
	"limited", "ltd", "ltd.",
	"plc", "p.l.c.", "public limited company",
	"llp", "l.l.p.", "limited liability partnership",
	"lp", "l.p.", "limited partnership",
	"corporation", "corp", "corp.",
	"incorporated", "inc", "inc.",
	"company", "co", "co.",
	"holdings", "holding",
	"group",
	"trust",
	"partnership",
	"partners",
	"investments",
	"capital",
	"ventures",
	"fund",
	"estate",
}

// corporateIndicators mark a name as corporate when they appear anywhere in
// it, catching names like "Alpha Holdings (UK)" that no suffix rule matches.
var corporateIndicators = []string{
	"holdings", "holding", "group", "trust", "investment",
	"ventures", "capital", "fund", "partners", "partnership",
}

// parentSuffixes is the narrower set used to split extracted shareholders
// into regular and corporate (parent) groups. A name qualifies only when it
// ends with one of these after a space.
var parentSuffixes = []string{"limited", "ltd", "trust", "plc", "llp", "lp"}

var companySuffixPatterns = buildSuffixPatterns()

func buildSuffixPatterns() []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(companySuffixes))
	for _, suf := range companySuffixes {
		out = append(out, regexp.MustCompile(`\b`+regexp.QuoteMeta(suf)+`\.?\s*$`))
	}
	return out
}

// IsCompanyName reports whether a shareholder name looks like a corporate
// entity rather than a natural person.
func IsCompanyName(name string) bool {
	if name == "" {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(name))

	for _, p := range companySuffixPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	for _, indicator := range corporateIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// ClassifyShareholder assigns the holder classification from the name alone.
// Registry resolution may later downgrade a corporate holder to unresolved.
func ClassifyShareholder(name string) models.Classification {
	if IsCompanyName(name) {
		return models.ClassificationCorporate
	}
	return models.ClassificationIndividual
}

// IsParentCompany reports whether a shareholder name ends with a corporate
// suffix strict enough to treat the holder as a parent-company candidate.
func IsParentCompany(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, suf := range parentSuffixes {
		if strings.HasSuffix(lower, " "+suf) {
			return true
		}
	}
	return false
}

// SplitParentCompanies partitions shareholders into regular holders and
// corporate (parent) holders, tagging each with its classification.
func SplitParentCompanies(shareholders []models.Shareholder) (regular, corporate []models.Shareholder) {
	for _, sh := range shareholders {
		sh.Classification = ClassifyShareholder(sh.Name)
		if IsParentCompany(sh.Name) {
			corporate = append(corporate, sh)
		} else {
			regular = append(regular, sh)
		}
	}
	return regular, corporate
}
