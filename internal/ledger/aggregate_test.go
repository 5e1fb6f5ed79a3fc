package ledger_test

import (
	"testing"
	"time"

	"github.com/spounge-ai/sysaudit/internal/classify"
	"github.com/spounge-ai/sysaudit/internal/domain"
	"github.com/spounge-ai/sysaudit/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateEmpty(t *testing.T) {
	host := domain.NewHostContext("ORCL", "/u01/home", 1)
	l := ledger.Aggregate(host, nil, nil, classify.Default())

	assert.Empty(t, l.Findings)
	assert.Equal(t, 0, l.Summary.Total())
	assert.Empty(t, l.Summary.Pairs())
	assert.Equal(t, 0, l.Summary.ProbableRemotePassword())
	assert.Equal(t, 0, l.Summary.ProbableLocalPassword())
}

func TestAggregateStructuredOnly(t *testing.T) {
	host := domain.NewHostContext("ORCL", "/u01/home", 1).WithCapabilities(domain.Capabilities{UnifiedAudit: true})
	ts := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	structured := []domain.StructuredEvent{
		{
			Trail:      domain.SourceUnifiedTrail,
			Timestamp:  ts,
			Principal:  "SYS",
			OriginHost: "10.4.4.4",
			AuthText:   "(TYPE=(DATABASE))",
		},
		{
			Trail:      domain.SourceUnifiedTrail,
			Timestamp:  ts.Add(-time.Minute),
			Principal:  "SYS",
			OriginHost: "dbhost01",
			AuthText:   "(TYPE=(OS));(CLIENT ADDRESS=((PROTOCOL=beq)))",
		},
	}

	l := ledger.Aggregate(host, structured, nil, classify.Default())
	require.Len(t, l.Findings, 2)

	assert.Equal(t, []domain.SummaryCount{
		{SummaryKey: domain.SummaryKey{Location: domain.LocationLocal, Method: domain.MethodLocalAuth}, Count: 1},
		{SummaryKey: domain.SummaryKey{Location: domain.LocationRemote, Method: domain.MethodPassword}, Count: 1},
	}, l.Summary.Pairs())
	assert.Equal(t, 1, l.Summary.ProbableRemotePassword())
	assert.Equal(t, 1, l.Summary.ProbableLocalPassword())
}

func TestAggregateOrdersStructuredFirst(t *testing.T) {
	host := domain.NewHostContext("ORCL", "/u01/home", 1)
	files := []domain.UnstructuredEvent{
		{File: "a.aud", Block: "(PROTOCOL=tcp)"},
		{File: "b.aud", Block: "BEQ"},
	}
	structured := []domain.StructuredEvent{{Trail: domain.SourceSessionTrail, OriginHost: "10.0.0.1"}}

	l := ledger.Aggregate(host, structured, files, classify.Default())
	require.Len(t, l.Findings, 3)

	assert.Equal(t, domain.SourceSessionTrail, l.Findings[0].Event.Source())
	assert.Equal(t, "a.aud", l.Findings[1].Event.(domain.UnstructuredEvent).File)
	assert.Equal(t, "b.aud", l.Findings[2].Event.(domain.UnstructuredEvent).File)
	for _, f := range l.Findings {
		assert.Equal(t, "ORCL", f.SID)
	}
	assert.Equal(t, 2, l.Summary.Count(domain.LocationRemote, domain.MethodLikelyPassword))
	assert.Equal(t, 1, l.Summary.Count(domain.LocationLocal, domain.MethodLocalAuth))
}
