// Package ledger merges classified evidence for one host.
package ledger

import (
	"github.com/spounge-ai/sysaudit/internal/domain"
)

// Classifier labels a raw event for a host.
type Classifier interface {
	Finding(sid string, ev domain.RawEvent) domain.Finding
}

// Aggregate classifies every event and returns the host ledger. Structured
// events come first, then file events, each in input order. The same
// connection seen in both sources is counted twice.
func Aggregate(host domain.HostContext, structured []domain.StructuredEvent, unstructured []domain.UnstructuredEvent, c Classifier) domain.Ledger {
	findings := make([]domain.Finding, 0, len(structured)+len(unstructured))
	for _, ev := range structured {
		findings = append(findings, c.Finding(host.SID, ev))
	}
	for _, ev := range unstructured {
		findings = append(findings, c.Finding(host.SID, ev))
	}

	return domain.Ledger{
		Host:     host,
		Findings: findings,
		Summary:  domain.NewSummary(findings),
	}
}
