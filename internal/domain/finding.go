package domain

import (
	"sort"
)

// Location is where a connection originated relative to the database host.
type Location string

const (
	LocationLocal   Location = "local"
	LocationRemote  Location = "remote"
	LocationUnknown Location = "unknown"
)

// Method is the inferred authentication method of a connection.
type Method string

const (
	MethodPassword                  Method = "password"
	MethodLikelyPassword            Method = "likely-password"
	MethodLocalAuth                 Method = "local-auth"
	MethodPossiblePasswordInCmdline Method = "possible-password-in-cmdline"
	MethodUnknown                   Method = "unknown"
)

// Finding pairs a raw event with its classification.
type Finding struct {
	SID      string
	Event    RawEvent
	Location Location
	Method   Method
}

// Fields returns the report row for the finding.
func (f Finding) Fields() map[string]string {
	row := f.Event.Fields()
	row["sid"] = f.SID
	row["detected_location"] = string(f.Location)
	row["detected_method"] = string(f.Method)
	return row
}

// SummaryKey indexes the summary counts.
type SummaryKey struct {
	Location Location
	Method   Method
}

// SummaryCount is one entry of a summary in deterministic order.
type SummaryCount struct {
	SummaryKey
	Count int
}

// Summary counts findings per (location, method). The zero value is an
// empty summary. Summaries are immutable once built.
type Summary struct {
	counts map[SummaryKey]int
	total  int
}

// NewSummary counts the classifications of findings.
func NewSummary(findings []Finding) Summary {
	s := Summary{counts: make(map[SummaryKey]int)}
	for _, f := range findings {
		s.counts[SummaryKey{Location: f.Location, Method: f.Method}]++
		s.total++
	}
	return s
}

// Count returns the number of findings classified as (loc, method).
func (s Summary) Count(loc Location, method Method) int {
	return s.counts[SummaryKey{Location: loc, Method: method}]
}

// Total returns the number of findings counted.
func (s Summary) Total() int { return s.total }

// Pairs returns the non-zero counts ordered by location then method.
func (s Summary) Pairs() []SummaryCount {
	out := make([]SummaryCount, 0, len(s.counts))
	for k, v := range s.counts {
		out = append(out, SummaryCount{SummaryKey: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Location != out[j].Location {
			return out[i].Location < out[j].Location
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// Merge returns a new summary holding the counts of both.
func (s Summary) Merge(other Summary) Summary {
	merged := Summary{counts: make(map[SummaryKey]int, len(s.counts)+len(other.counts))}
	for k, v := range s.counts {
		merged.counts[k] += v
	}
	for k, v := range other.counts {
		merged.counts[k] += v
	}
	merged.total = s.total + other.total
	return merged
}

// ProbableRemotePassword counts remote connections that most likely
// presented a password.
func (s Summary) ProbableRemotePassword() int {
	return s.Count(LocationRemote, MethodPassword) +
		s.Count(LocationRemote, MethodLikelyPassword) +
		s.Count(LocationRemote, MethodPossiblePasswordInCmdline)
}

// ProbableLocalPassword counts local connections, including OS-authenticated
// ones, that could have carried a credential.
func (s Summary) ProbableLocalPassword() int {
	return s.Count(LocationLocal, MethodPassword) +
		s.Count(LocationLocal, MethodPossiblePasswordInCmdline) +
		s.Count(LocationLocal, MethodLocalAuth)
}

// Ledger is the per-host evidence collection produced by one audit pass.
type Ledger struct {
	Host     HostContext
	Findings []Finding
	Summary  Summary
}
