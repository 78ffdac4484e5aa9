package sqlite

func (s Storage) RunMigrations() error {
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id VARCHAR NOT NULL PRIMARY KEY,
		owner_group_id VARCHAR NULL DEFAULT NULL,
		creator_user_id VARCHAR NOT NULL,
		title VARCHAR NOT NULL,
		category VARCHAR NOT NULL,
		occurs_at TIMESTAMP NOT NULL,
		person VARCHAR NULL DEFAULT NULL,
		notes TEXT NULL DEFAULT NULL,
		origin VARCHAR NOT NULL,
		external_id VARCHAR NULL DEFAULT NULL,
		external_calendar_id VARCHAR NULL DEFAULT NULL
	)`,
	// The identity triple is the idempotency key for synchronized records.
	`CREATE UNIQUE INDEX IF NOT EXISTS events_external_identity
		ON events (owner_group_id, external_id, external_calendar_id)
		WHERE external_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS sync_cursors (
		group_id VARCHAR NOT NULL PRIMARY KEY,
		resume_token VARCHAR NOT NULL,
		bound_calendar_id VARCHAR NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS credentials (
		user_id VARCHAR NOT NULL PRIMARY KEY,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL DEFAULT "",
		expiry TIMESTAMP NULL DEFAULT NULL,
		scope VARCHAR NOT NULL DEFAULT ""
	)`,
	`CREATE TABLE IF NOT EXISTS group_members (
		group_id VARCHAR NOT NULL,
		user_id VARCHAR NOT NULL,
		PRIMARY KEY (group_id, user_id)
	)`,
}
