package constants

// Table names shared by the PostgreSQL queries, the SQLite models and the
// migrations.
const (
	TableResults = "db_assessment_results"
	TableHistory = "db_assessment_history"
)

// Prepared statement names
const (
	StmtSelectFingerprint = "select_fingerprint"
	StmtInsertResult      = "insert_result"
	StmtUpdateResult      = "update_result"
	StmtInsertHistory     = "insert_history"
	StmtListCurrent       = "list_current"
	StmtListHistory       = "list_history"
	StmtCountByStatus     = "count_by_status"
	StmtCountByHost       = "count_by_host_status"
)

var Queries = map[string]string{
	StmtSelectFingerprint: `
		SELECT hash FROM db_assessment_results
		WHERE hostname = $1 AND oracle_sid = $2 AND pdb_name = $3 AND check_name = $4
		FOR UPDATE`,

	StmtInsertResult: `
		INSERT INTO db_assessment_results
			(hostname, oracle_sid, pdb_name, check_name, result, status, hash, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,

	StmtUpdateResult: `
		UPDATE db_assessment_results
		SET result = $5, status = $6, hash = $7, updated_at = $8
		WHERE hostname = $1 AND oracle_sid = $2 AND pdb_name = $3 AND check_name = $4`,

	StmtInsertHistory: `
		INSERT INTO db_assessment_history
			(hostname, oracle_sid, pdb_name, check_name, result, status, hash, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,

	StmtListCurrent: `
		SELECT hostname, oracle_sid, pdb_name, check_name, result, status, hash, updated_at
		FROM db_assessment_results
		WHERE ($1 = '' OR status = $1) AND ($2 = '' OR hostname = $2)
		ORDER BY updated_at DESC, hostname, oracle_sid, pdb_name, check_name`,

	StmtListHistory: `
		SELECT id, hostname, oracle_sid, pdb_name, check_name, result, status, hash, recorded_at
		FROM db_assessment_history
		ORDER BY recorded_at DESC, id DESC
		LIMIT $1`,

	StmtCountByStatus: `
		SELECT status, COUNT(*) FROM db_assessment_results GROUP BY status`,

	StmtCountByHost: `
		SELECT hostname, status, COUNT(*) FROM db_assessment_results
		GROUP BY hostname, status
		ORDER BY hostname, status`,
}
