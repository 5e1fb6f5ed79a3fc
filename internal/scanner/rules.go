package scanner

import "regexp"

// Attribute names extracted from an audit record block.
const (
	AttrPrincipal     = "principal"
	AttrAction        = "action"
	AttrClientAddress = "client_address"
	AttrProgram       = "program"
	AttrAuth          = "auth"
)

// ExtractionRule pulls one attribute out of a block. The first capture
// group is the value. Several rules may target the same attribute; the
// first one that matches wins.
type ExtractionRule struct {
	Attribute string
	Pattern   *regexp.Regexp
}

// lengthPrefix tolerates the "[n]" byte-count marker written before values.
const lengthPrefix = `(?:\[\d+\]\s*)?`

// DefaultExtractionRules covers the classic text audit trail layout, e.g.
//
//	ACTION :[7] 'CONNECT'
//	DATABASE USER:[3] 'SYS'
//	CLIENT ADDRESS:[58] '(ADDRESS=(PROTOCOL=tcp)(HOST=10.0.0.5)(PORT=41234))'
func DefaultExtractionRules() []ExtractionRule {
	return []ExtractionRule{
		{AttrPrincipal, regexp.MustCompile(`(?i)DATABASE USER\s*:\s*` + lengthPrefix + `['"]?([A-Z0-9_$#/]+)`)},
		{AttrAction, regexp.MustCompile(`(?i)\bACTION\s*:\s*` + lengthPrefix + `['"]?\s*([A-Z_ ]+)`)},
		{AttrClientAddress, regexp.MustCompile(`(?i)CLIENT ADDRESS\s*:\s*` + lengthPrefix + `(.+)`)},
		{AttrProgram, regexp.MustCompile(`(?i)\bPROGRAM\s*:\s*` + lengthPrefix + `['"]?([^'"\n]+)`)},
		{AttrAuth, regexp.MustCompile(`(?i)\bAUTHENTICATION(?:\s+TYPE)?\s*:\s*` + lengthPrefix + `['"]?([A-Z0-9_ ()=;-]+)`)},
		{AttrAuth, regexp.MustCompile(`(?i)(AUTHENTICATED BY:\s*[A-Z]+)`)},
	}
}

// blockSeparator splits file content on blank lines or dashed rules.
var blockSeparator = regexp.MustCompile(`\n\s*\n|\n-+\n`)
