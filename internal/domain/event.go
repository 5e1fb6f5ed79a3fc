package domain

import (
	"strconv"
	"strings"
	"time"
)

// Source names the origin of a raw event.
type Source string

const (
	SourceUnifiedTrail Source = "unified_audit_trail"
	SourceSessionTrail Source = "dba_audit_session"
	SourceAuditFile    Source = "audit_file"
)

// RawEvent is a connection record in the shape the classifier consumes.
// Implementations are value types and are never mutated after extraction.
type RawEvent interface {
	Source() Source
	// LocationEvidence is the text searched for connection-origin indicators.
	LocationEvidence() string
	// AuthEvidence is the text searched for authentication indicators.
	AuthEvidence() string
	// ProgramEvidence names the client program, if known.
	ProgramEvidence() string
	// Fields returns the report columns this event populates.
	Fields() map[string]string
}

// StructuredEvent is one row from an audit table.
type StructuredEvent struct {
	Trail      Source
	Timestamp  time.Time
	Principal  string
	Action     string
	OriginHost string
	Program    string
	OSUser     string
	Terminal   string
	ReturnCode int
	AuthText   string
	Row        string
}

func (e StructuredEvent) Source() Source { return e.Trail }

func (e StructuredEvent) LocationEvidence() string {
	return strings.TrimSpace(e.OriginHost + " " + e.AuthText)
}

func (e StructuredEvent) AuthEvidence() string { return e.AuthText }

func (e StructuredEvent) ProgramEvidence() string { return e.Program }

func (e StructuredEvent) Fields() map[string]string {
	f := map[string]string{
		"source":      string(e.Trail),
		"row":         e.Row,
		"timestamp":   e.Timestamp.Format(time.DateTime),
		"dbusername":  e.Principal,
		"action":      e.Action,
		"os_username": e.OSUser,
		"auth":        e.AuthText,
		"return_code": strconv.Itoa(e.ReturnCode),
	}
	if e.Trail == SourceUnifiedTrail {
		f["client_host"] = e.OriginHost
		f["client_program"] = e.Program
		f["terminal"] = e.Terminal
	} else {
		f["userhost"] = e.OriginHost
		f["terminal"] = e.Terminal
	}
	return f
}

// UnstructuredEvent is a connection record extracted from an audit file block.
type UnstructuredEvent struct {
	File          string
	Principal     string
	Action        string
	ClientAddress string
	Program       string
	AuthText      string
	// Block is the complete text of the record the event was extracted from.
	Block string
}

func (e UnstructuredEvent) Source() Source { return SourceAuditFile }

func (e UnstructuredEvent) LocationEvidence() string { return e.Block }

func (e UnstructuredEvent) AuthEvidence() string { return e.AuthText }

func (e UnstructuredEvent) ProgramEvidence() string { return e.Program }

func (e UnstructuredEvent) Fields() map[string]string {
	return map[string]string{
		"source":         string(SourceAuditFile),
		"file":           e.File,
		"db_user":        e.Principal,
		"action":         e.Action,
		"client_address": e.ClientAddress,
		"program":        e.Program,
		"auth":           e.AuthText,
	}
}
