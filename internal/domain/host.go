package domain

import (
	"path/filepath"
	"strings"
)

// Capabilities records what a probe learned about a database instance.
type Capabilities struct {
	Probed             bool
	UnifiedAudit       bool
	AuditFileDest      string
	AuditSysOperations string
	// FallbackReason is set when the unified-audit probe failed and the
	// legacy session trail was selected instead.
	FallbackReason string
}

// HostContext identifies one database instance listed in the registry.
// Values are immutable; use WithCapabilities to derive a probed copy.
type HostContext struct {
	SID          string
	OracleHome   string
	Line         int
	Capabilities Capabilities
}

// NewHostContext builds an unprobed host context.
func NewHostContext(sid, oracleHome string, line int) HostContext {
	return HostContext{
		SID:        sid,
		OracleHome: oracleHome,
		Line:       line,
	}
}

// WithCapabilities returns a copy of h carrying caps.
func (h HostContext) WithCapabilities(caps Capabilities) HostContext {
	caps.Probed = true
	h.Capabilities = caps
	return h
}

// EnvOverrides returns the process environment entries a client tool needs
// to reach this instance over the local bequeath adapter. Without a home
// only ORACLE_SID is set and the inherited ORACLE_HOME and PATH are kept.
func (h HostContext) EnvOverrides() map[string]string {
	overrides := map[string]string{"ORACLE_SID": h.SID}
	if h.OracleHome != "" {
		overrides["ORACLE_HOME"] = h.OracleHome
		overrides["PATH"] = filepath.Join(h.OracleHome, "bin")
	}
	return overrides
}

// Environ merges EnvOverrides into base. PATH is prefixed rather than replaced.
func (h HostContext) Environ(base []string) []string {
	overrides := h.EnvOverrides()
	out := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, value, _ := strings.Cut(kv, "=")
		override, ok := overrides[key]
		if !ok {
			out = append(out, kv)
			continue
		}
		if key == "PATH" && value != "" {
			override = override + string(filepath.ListSeparator) + value
		}
		out = append(out, key+"="+override)
		delete(overrides, key)
	}
	for _, key := range []string{"ORACLE_SID", "ORACLE_HOME", "PATH"} {
		if v, ok := overrides[key]; ok {
			out = append(out, key+"="+v)
		}
	}
	return out
}

// AuditDir returns the configured audit file destination with surrounding
// quotes removed, or "" when the parameter was not reported.
func (h HostContext) AuditDir() string {
	return strings.Trim(strings.TrimSpace(h.Capabilities.AuditFileDest), `'"`)
}
