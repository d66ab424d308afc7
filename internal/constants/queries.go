package constants

// Queries are written with ? placeholders and rebound per driver.
const (
	ListPoolResources = `
	SELECT resource_id FROM resource_pool WHERE class = ? ORDER BY resource_id
	`

	InsertPoolResource = `
	INSERT INTO resource_pool (class, resource_id) VALUES (?, ?)
	`

	DeletePoolResource = `
	DELETE FROM resource_pool WHERE class = ? AND resource_id = ?
	`

	CountPoolResource = `
	SELECT COUNT(*) FROM resource_pool WHERE class = ? AND resource_id = ?
	`

	CreatePoolTable = `
	CREATE TABLE IF NOT EXISTS resource_pool (
		class       VARCHAR(16) NOT NULL,
		resource_id VARCHAR(32) NOT NULL,
		PRIMARY KEY (class, resource_id)
	)
	`
)
