package report

import (
	"time"

	"github.com/spounge-ai/sysaudit/internal/domain"
)

type countMessage struct {
	Location string `json:"location"`
	Method   string `json:"method"`
	Count    int    `json:"count"`
}

// LedgerMessage is the wire form of one host ledger.
type LedgerMessage struct {
	PassID                 string              `json:"pass_id"`
	SID                    string              `json:"sid"`
	OracleHome             string              `json:"oracle_home"`
	UnifiedAudit           bool                `json:"unified_audit"`
	AuditFileDest          string              `json:"audit_file_dest,omitempty"`
	CollectedAt            time.Time           `json:"collected_at"`
	Summary                []countMessage      `json:"summary"`
	ProbableRemotePassword int                 `json:"probable_remote_password"`
	ProbableLocalPassword  int                 `json:"probable_local_password"`
	Findings               []map[string]string `json:"findings"`
}

func newLedgerMessage(report *domain.PassReport, l domain.Ledger) LedgerMessage {
	msg := LedgerMessage{
		PassID:                 report.ID,
		SID:                    l.Host.SID,
		OracleHome:             l.Host.OracleHome,
		UnifiedAudit:           l.Host.Capabilities.UnifiedAudit,
		AuditFileDest:          l.Host.AuditDir(),
		CollectedAt:            report.FinishedAt,
		ProbableRemotePassword: l.Summary.ProbableRemotePassword(),
		ProbableLocalPassword:  l.Summary.ProbableLocalPassword(),
		Findings:               make([]map[string]string, 0, len(l.Findings)),
	}
	for _, pair := range l.Summary.Pairs() {
		msg.Summary = append(msg.Summary, countMessage{
			Location: string(pair.Location),
			Method:   string(pair.Method),
			Count:    pair.Count,
		})
	}
	for _, f := range l.Findings {
		msg.Findings = append(msg.Findings, f.Fields())
	}
	return msg
}

// passSummary is the JSON document archived next to the CSV.
type passSummary struct {
	*domain.PassReport
	Ledgers []LedgerMessage `json:"ledgers"`
}
