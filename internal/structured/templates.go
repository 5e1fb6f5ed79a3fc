package structured

import "fmt"

// Every trail template emits the same nine pipe-delimited columns:
//
//	timestamp|principal|action|origin host|program|os user|terminal|return code|auth text
//
// The free-text authentication column is last so embedded separators survive.
//
// The session trail keeps one row per session and rewrites its action from
// LOGON to LOGOFF when the session ends, so it is filtered on principal only.
const eventColumns = 9

const unifiedTrailTemplate = `SELECT TO_CHAR(event_timestamp,'YYYY-MM-DD HH24:MI:SS') || '|' ||
 NVL(dbusername,'') || '|' || NVL(action_name,'') || '|' || NVL(userhost,'') || '|' ||
 NVL(client_program_name,'') || '|' || NVL(os_username,'') || '|' || NVL(terminal,'') || '|' ||
 NVL(TO_CHAR(return_code),'') || '|' || NVL(authentication_type,'')
FROM unified_audit_trail
WHERE dbusername IN ('SYS','SYSTEM') AND action_name = 'LOGON'
ORDER BY event_timestamp DESC
FETCH FIRST %d ROWS ONLY;`

const sessionTrailTemplate = `SELECT TO_CHAR(timestamp,'YYYY-MM-DD HH24:MI:SS') || '|' ||
 NVL(username,'') || '|' || NVL(action_name,'') || '|' || NVL(userhost,'') || '|' ||
 '' || '|' || NVL(os_username,'') || '|' || NVL(terminal,'') || '|' ||
 NVL(TO_CHAR(returncode),'') || '|' || NVL(comment_text,'')
FROM dba_audit_session
WHERE username IN ('SYS','SYSTEM')
ORDER BY timestamp DESC
FETCH FIRST %d ROWS ONLY;`

const unifiedOptionQuery = `SELECT value FROM v$option WHERE parameter = 'Unified Auditing';`

const (
	paramAuditFileDest      = "audit_file_dest"
	paramAuditSysOperations = "audit_sys_operations"
)

func parameterQuery(name string) string {
	return fmt.Sprintf("SELECT value FROM v$parameter WHERE name = '%s';", name)
}

func eventsQuery(unified bool, limit int) string {
	if unified {
		return fmt.Sprintf(unifiedTrailTemplate, limit)
	}
	return fmt.Sprintf(sessionTrailTemplate, limit)
}
