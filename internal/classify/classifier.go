// Package classify labels connection events with an origin and an
// authentication method using an ordered rule table.
package classify

import (
	"github.com/spounge-ai/sysaudit/internal/domain"
)

// Classifier is safe for concurrent use; it holds no mutable state.
type Classifier struct {
	rules RuleSet
}

// New returns a classifier driven by rules.
func New(rules RuleSet) *Classifier {
	return &Classifier{rules: rules}
}

// Default returns a classifier using DefaultRules.
func Default() *Classifier {
	return New(DefaultRules())
}

// Classify assigns a location and a method to ev. It never fails: events
// without usable evidence are labelled unknown.
func (c *Classifier) Classify(ev domain.RawEvent) (domain.Location, domain.Method) {
	location := c.location(ev.LocationEvidence())
	return location, c.method(location, ev.AuthEvidence(), ev.ProgramEvidence())
}

// Finding classifies ev and wraps it for the host sid.
func (c *Classifier) Finding(sid string, ev domain.RawEvent) domain.Finding {
	location, method := c.Classify(ev)
	return domain.Finding{
		SID:      sid,
		Event:    ev,
		Location: location,
		Method:   method,
	}
}

func (c *Classifier) location(evidence string) domain.Location {
	for _, rule := range c.rules.Location {
		if rule.Pattern.MatchString(evidence) {
			return rule.Location
		}
	}
	return domain.LocationUnknown
}

func (c *Classifier) method(location domain.Location, auth, program string) domain.Method {
	if matchAny(c.rules.PasswordIndicators, auth) {
		return domain.MethodPassword
	}

	switch location {
	case domain.LocationRemote:
		return domain.MethodLikelyPassword
	case domain.LocationLocal:
		return domain.MethodLocalAuth
	}

	if matchAny(c.rules.InteractiveTools, program) {
		return domain.MethodPossiblePasswordInCmdline
	}
	return domain.MethodUnknown
}
