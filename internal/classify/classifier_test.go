package classify_test

import (
	"fmt"
	"testing"

	"github.com/spounge-ai/sysaudit/internal/classify"
	"github.com/spounge-ai/sysaudit/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	c := classify.Default()

	tests := []struct {
		name     string
		event    domain.RawEvent
		location domain.Location
		method   domain.Method
	}{
		{
			name: "file block over tcp without auth text",
			event: domain.UnstructuredEvent{
				Principal: "SYS",
				Action:    "CONNECT",
				Block:     "ACTION :[7] 'CONNECT'\nCLIENT ADDRESS: [59] '(ADDRESS=(PROTOCOL=tcp)(HOST=10.20.30.40)(PORT=51311))'",
			},
			location: domain.LocationRemote,
			method:   domain.MethodLikelyPassword,
		},
		{
			name: "file block over tcp with password auth",
			event: domain.UnstructuredEvent{
				AuthText: "PASSWORD",
				Block:    "(PROTOCOL=tcp)",
			},
			location: domain.LocationRemote,
			method:   domain.MethodPassword,
		},
		{
			name: "bequeath connection",
			event: domain.UnstructuredEvent{
				Block: "CLIENT ADDRESS: [22] '(PROTOCOL=beq)(PID=42)'",
			},
			location: domain.LocationLocal,
			method:   domain.MethodLocalAuth,
		},
		{
			name: "local marker with password indicator",
			event: domain.UnstructuredEvent{
				AuthText: "AUTHENTICATED BY: DATABASE",
				Block:    "LOCAL",
			},
			location: domain.LocationLocal,
			method:   domain.MethodPassword,
		},
		{
			name: "no location evidence but interactive tool",
			event: domain.UnstructuredEvent{
				Program: "sqlplus@dbhost (TNS V1-V3)",
				Block:   "DATABASE USER:[3] 'SYS'",
			},
			location: domain.LocationUnknown,
			method:   domain.MethodPossiblePasswordInCmdline,
		},
		{
			name:     "nothing at all",
			event:    domain.UnstructuredEvent{},
			location: domain.LocationUnknown,
			method:   domain.MethodUnknown,
		},
		{
			name: "structured row with database authentication",
			event: domain.StructuredEvent{
				Trail:      domain.SourceUnifiedTrail,
				OriginHost: "10.0.0.5",
				AuthText:   "(TYPE=(DATABASE));",
			},
			location: domain.LocationRemote,
			method:   domain.MethodPassword,
		},
		{
			name: "structured row with os authentication over bequeath",
			event: domain.StructuredEvent{
				Trail:      domain.SourceUnifiedTrail,
				OriginHost: "dbhost01",
				AuthText:   "(TYPE=(OS));(CLIENT ADDRESS=((PROTOCOL=beq)));",
			},
			location: domain.LocationLocal,
			method:   domain.MethodLocalAuth,
		},
		{
			name: "unified bequeath logon carrying a host attribute",
			event: domain.StructuredEvent{
				Trail:      domain.SourceUnifiedTrail,
				OriginHost: "dbhost01",
				AuthText:   "(TYPE=(OS));(CLIENT ADDRESS=((PROTOCOL=beq)(HOST=[local])))",
			},
			// Remote rules run first, so HOST= outranks PROTOCOL=beq.
			location: domain.LocationRemote,
			method:   domain.MethodLikelyPassword,
		},
		{
			name: "legacy row from named host",
			event: domain.StructuredEvent{
				Trail:      domain.SourceSessionTrail,
				OriginHost: "apphost",
				Program:    "sqlplus.exe",
			},
			location: domain.LocationUnknown,
			method:   domain.MethodPossiblePasswordInCmdline,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			location, method := c.Classify(tc.event)
			assert.Equal(t, tc.location, location)
			assert.Equal(t, tc.method, method)
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := classify.Default()
	fixtures := []domain.RawEvent{
		domain.UnstructuredEvent{Block: "(PROTOCOL=tcp)(HOST=db)", AuthText: "PASSWORD"},
		domain.UnstructuredEvent{Block: "BEQ", Program: "sqlplus"},
		domain.StructuredEvent{OriginHost: "192.168.1.1"},
		domain.StructuredEvent{},
	}

	first := make([]domain.Finding, 0, len(fixtures))
	for _, ev := range fixtures {
		first = append(first, c.Finding("ORCL", ev))
	}
	for i, ev := range fixtures {
		assert.Equal(t, first[i], c.Finding("ORCL", ev))
	}
}

func TestDottedQuadIsRemote(t *testing.T) {
	c := classify.Default()
	for _, addr := range []string{"0.0.0.0", "10.1.2.3", "172.16.254.1", "255.255.255.255", "999.1.1.1"} {
		for _, wrap := range []string{"%s", "client %s port 1521", "(ADDRESS=(%s))"} {
			evidence := fmt.Sprintf(wrap, addr)
			location, method := c.Classify(domain.UnstructuredEvent{Block: evidence})
			assert.Equal(t, domain.LocationRemote, location, evidence)
			assert.NotEqual(t, domain.MethodUnknown, method, evidence)
		}
	}
}

const bequeathFirstRules = `
location:
  - name: bequeath
    pattern: '(?i)PROTOCOL\s*=\s*beq'
    location: local
  - name: tcp
    pattern: '(?i)PROTOCOL\s*=\s*tcps?'
    location: remote
  - name: host-attribute
    pattern: '(?i)\bHOST\s*='
    location: remote
`

func TestRuleOverrideCanPreferBequeath(t *testing.T) {
	rules, err := classify.ParseRules([]byte(bequeathFirstRules))
	require.NoError(t, err)

	location, method := classify.New(rules).Classify(domain.StructuredEvent{
		Trail:    domain.SourceUnifiedTrail,
		AuthText: "(TYPE=(OS));(CLIENT ADDRESS=((PROTOCOL=beq)(HOST=[local])))",
	})
	assert.Equal(t, domain.LocationLocal, location)
	assert.Equal(t, domain.MethodLocalAuth, method)
}
