package domain

import "time"

// Stage names the step of a host audit where something went wrong.
type Stage string

const (
	StageProbe     Stage = "probe"
	StageFetch     Stage = "fetch"
	StageScan      Stage = "scan"
	StageTimeout   Stage = "timeout"
	StageCancelled Stage = "cancelled"
)

// HostIssue records a per-host problem. Fatal issues mean the host
// contributed no ledger to the pass.
type HostIssue struct {
	SID    string `json:"sid"`
	Stage  Stage  `json:"stage"`
	Reason string `json:"reason"`
	Fatal  bool   `json:"fatal"`
}

// PassReport is the outcome of one audit pass across the registry.
type PassReport struct {
	ID         string      `json:"id"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Hosts      int         `json:"hosts"`
	Ledgers    []Ledger    `json:"-"`
	Issues     []HostIssue `json:"issues"`
	Cancelled  bool        `json:"cancelled"`
	Totals     Summary     `json:"-"`
}

// Findings returns every finding of the pass in host order.
func (r *PassReport) Findings() []Finding {
	var out []Finding
	for _, l := range r.Ledgers {
		out = append(out, l.Findings...)
	}
	return out
}

// FailedHosts counts hosts that produced no ledger.
func (r *PassReport) FailedHosts() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Fatal {
			n++
		}
	}
	return n
}
