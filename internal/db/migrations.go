package db

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "create client state table",
		sql: `
			CREATE TABLE IF NOT EXISTS client_state (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)
		`,
	},
	{
		name: "create preferences table",
		sql: `
			CREATE TABLE IF NOT EXISTS preferences (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)
		`,
	},
}
