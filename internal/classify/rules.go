package classify

import (
	"regexp"

	"github.com/spounge-ai/sysaudit/internal/domain"
)

// LocationRule assigns Location when Pattern matches the location evidence.
type LocationRule struct {
	Name     string
	Pattern  *regexp.Regexp
	Location domain.Location
}

// RuleSet is the ordered decision table used by a Classifier.
type RuleSet struct {
	// Location rules are evaluated in order; the first match wins.
	Location []LocationRule
	// PasswordIndicators are matched against the authentication evidence.
	PasswordIndicators []*regexp.Regexp
	// InteractiveTools are matched against the program evidence.
	InteractiveTools []*regexp.Regexp
}

// DefaultRules returns the built-in decision table.
func DefaultRules() RuleSet {
	return RuleSet{
		Location: []LocationRule{
			{Name: "tcp-transport", Pattern: regexp.MustCompile(`(?i)PROTOCOL\s*=\s*tcps?\b`), Location: domain.LocationRemote},
			{Name: "host-key", Pattern: regexp.MustCompile(`(?i)\bHOST\s*=`), Location: domain.LocationRemote},
			{Name: "ipv4", Pattern: regexp.MustCompile(`\b\d{1,3}(\.\d{1,3}){3}\b`), Location: domain.LocationRemote},
			{Name: "beq-transport", Pattern: regexp.MustCompile(`(?i)PROTOCOL\s*=\s*beq\b`), Location: domain.LocationLocal},
			{Name: "beq", Pattern: regexp.MustCompile(`(?i)BEQ`), Location: domain.LocationLocal},
			{Name: "local-marker", Pattern: regexp.MustCompile(`(?i)\bLOCAL\b`), Location: domain.LocationLocal},
		},
		PasswordIndicators: []*regexp.Regexp{
			regexp.MustCompile(`(?i)PASS`),
			regexp.MustCompile(`(?i)AUTHENTICATED\s+BY:\s*DATABASE`),
			regexp.MustCompile(`(?i)TYPE\s*=\s*\(\s*DATABASE\s*\)`),
		},
		InteractiveTools: []*regexp.Regexp{
			regexp.MustCompile(`(?i)sqlplus`),
			regexp.MustCompile(`(?i)\bsqlcl\b`),
		},
	}
}
