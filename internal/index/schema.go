package index

const schemaSQL = `
CREATE TABLE IF NOT EXISTS jobs (
	id        TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	metadata  TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS edges (
	job_id    TEXT NOT NULL,
	target_id TEXT NOT NULL,
	PRIMARY KEY (job_id, target_id)
);

CREATE INDEX IF NOT EXISTS edges_target_idx ON edges(target_id);
CREATE INDEX IF NOT EXISTS jobs_timestamp_idx ON jobs(timestamp);
`
