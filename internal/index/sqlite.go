// Package index is the persistent metadata and dependency-edge store:
// a cache over the canonical on-disk jobs, rebuildable
// from Storage at any time. It is backed by SQLite through
// github.com/ncruces/go-sqlite3, a pure-Go driver that runs SQLite
// compiled to WASM rather than linking cgo, so the index works the
// same way whether or not a C toolchain is available on the host.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/r3store/r3/internal/job"
	"github.com/r3store/r3/internal/query"
	"github.com/r3store/r3/internal/rerr"
)

// JobSource is the read surface of storage.Storage that Rebuild needs:
// enumerate every committed job id and load each one. Index depends on
// this narrow interface, not on the jobstore package itself, keeping
// the index a pure function of "whatever can list and load jobs".
type JobSource interface {
	Jobs() ([]string, error)
	Get(id string) (*job.Job, error)
}

// Index wraps a SQLite-backed jobs/edges store.
type Index struct {
	db *sql.DB
}

// Open opens (creating if necessary) the index database at path and
// ensures its schema exists.
func Open(path string) (*Index, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, rerr.Wrap(rerr.External, "opening index database", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, rerr.Wrap(rerr.External, "setting WAL mode", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, rerr.Wrap(rerr.External, "creating index schema", err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database connection.
func (ix *Index) Close() error { return ix.db.Close() }

// Add records a newly committed job and its outgoing Job-dependency
// edges.
func (ix *Index) Add(ctx context.Context, j *job.Job) error {
	metaJSON, err := json.Marshal(j.Metadata)
	if err != nil {
		return rerr.Wrap(rerr.Invalid, "encoding job metadata", err)
	}
	ts := ""
	if j.Timestamp != nil {
		ts = j.Timestamp.UTC().Format(time.RFC3339)
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return rerr.Wrap(rerr.External, "beginning index transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO jobs (id, timestamp, metadata) VALUES (?, ?, ?)`, j.ID, ts, string(metaJSON)); err != nil {
		return rerr.Wrap(rerr.External, "inserting job record", err)
	}
	if err := insertEdges(ctx, tx, j); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return rerr.Wrap(rerr.External, "committing index transaction", err)
	}
	return nil
}

// Update replaces a job's indexed metadata and edges (the job's id
// does not change, only what it points at or carries).
func (ix *Index) Update(ctx context.Context, j *job.Job) error {
	metaJSON, err := json.Marshal(j.Metadata)
	if err != nil {
		return rerr.Wrap(rerr.Invalid, "encoding job metadata", err)
	}
	ts := ""
	if j.Timestamp != nil {
		ts = j.Timestamp.UTC().Format(time.RFC3339)
	}

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return rerr.Wrap(rerr.External, "beginning index transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE jobs SET timestamp = ?, metadata = ? WHERE id = ?`, ts, string(metaJSON), j.ID)
	if err != nil {
		return rerr.Wrap(rerr.External, "updating job record", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return rerr.Newf(rerr.NotFound, "job %s not indexed", j.ID)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE job_id = ?`, j.ID); err != nil {
		return rerr.Wrap(rerr.External, "clearing stale edges", err)
	}
	if err := insertEdges(ctx, tx, j); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return rerr.Wrap(rerr.External, "committing index transaction", err)
	}
	return nil
}

// Remove drops a job's record and its outgoing edges. Edges that
// targeted it from other jobs are left as-is: the index tracks
// outgoing Job-dependency edges only, and the Repository facade is
// responsible for refusing to remove a job that still has dependents.
func (ix *Index) Remove(ctx context.Context, id string) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return rerr.Wrap(rerr.External, "beginning index transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE job_id = ?`, id); err != nil {
		return rerr.Wrap(rerr.External, "deleting outgoing edges", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return rerr.Wrap(rerr.External, "deleting job record", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return rerr.Newf(rerr.NotFound, "job %s not indexed", id)
	}
	return tx.Commit()
}

func insertEdges(ctx context.Context, tx *sql.Tx, j *job.Job) error {
	for _, d := range j.Dependencies {
		if d.Kind != job.KindJob {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO edges (job_id, target_id) VALUES (?, ?)`, j.ID, d.JobID); err != nil {
			return rerr.Wrap(rerr.External, "inserting dependency edge", err)
		}
	}
	return nil
}

// Record is what Get and Find return: just enough to avoid a
// filesystem read for the common case of inspecting timestamp and
// metadata.
type Record struct {
	ID        string
	Timestamp time.Time
	Metadata  map[string]interface{}
}

// Get returns the indexed record for id.
func (ix *Index) Get(ctx context.Context, id string) (Record, error) {
	var ts, metaJSON string
	err := ix.db.QueryRowContext(ctx, `SELECT timestamp, metadata FROM jobs WHERE id = ?`, id).Scan(&ts, &metaJSON)
	if err == sql.ErrNoRows {
		return Record{}, rerr.Newf(rerr.NotFound, "job %s not indexed", id)
	}
	if err != nil {
		return Record{}, rerr.Wrap(rerr.External, "querying job record", err)
	}
	return decodeRecord(id, ts, metaJSON)
}

// Find parses the document query q, compiles it, and evaluates it
// against indexed metadata; an empty q matches every job. When latest
// is true, it returns at most the single record with the maximum
// timestamp.
func (ix *Index) Find(ctx context.Context, q map[string]interface{}, latest bool) ([]Record, error) {
	where, args := "1=1", []interface{}{}
	if len(q) > 0 {
		node, err := query.Parse(q)
		if err != nil {
			return nil, err
		}
		sqlPred, sqlArgs, err := query.Compile(node)
		if err != nil {
			return nil, err
		}
		where, args = sqlPred, sqlArgs
	}

	stmt := fmt.Sprintf(`SELECT id, timestamp, metadata FROM jobs WHERE %s ORDER BY timestamp DESC`, where)
	if latest {
		stmt += " LIMIT 1"
	}

	rows, err := ix.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, rerr.Wrap(rerr.External, "querying jobs", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var id, ts, metaJSON string
		if err := rows.Scan(&id, &ts, &metaJSON); err != nil {
			return nil, rerr.Wrap(rerr.External, "scanning job row", err)
		}
		rec, err := decodeRecord(id, ts, metaJSON)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, rerr.Wrap(rerr.External, "iterating job rows", err)
	}
	return out, nil
}

// FindDependents returns every job whose outgoing edges include id.
// With recursive, it returns the transitive closure, terminating on
// cycles by set membership.
func (ix *Index) FindDependents(ctx context.Context, id string, recursive bool) ([]string, error) {
	direct, err := ix.directDependents(ctx, id)
	if err != nil {
		return nil, err
	}
	if !recursive {
		return direct, nil
	}

	seen := map[string]bool{}
	var frontier []string
	frontier = append(frontier, direct...)
	for _, d := range direct {
		seen[d] = true
	}
	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]
		more, err := ix.directDependents(ctx, next)
		if err != nil {
			return nil, err
		}
		for _, m := range more {
			if !seen[m] {
				seen[m] = true
				frontier = append(frontier, m)
			}
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out, nil
}

func (ix *Index) directDependents(ctx context.Context, id string) ([]string, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT job_id FROM edges WHERE target_id = ?`, id)
	if err != nil {
		return nil, rerr.Wrap(rerr.External, "querying dependent edges", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var jobID string
		if err := rows.Scan(&jobID); err != nil {
			return nil, rerr.Wrap(rerr.External, "scanning edge row", err)
		}
		out = append(out, jobID)
	}
	return out, rows.Err()
}

// Rebuild drops the index and repopulates it from source. It is always
// correct because the canonical truth lives in the job directories.
func (ix *Index) Rebuild(ctx context.Context, source JobSource) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return rerr.Wrap(rerr.External, "beginning rebuild transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM edges`); err != nil {
		return rerr.Wrap(rerr.External, "clearing edges", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs`); err != nil {
		return rerr.Wrap(rerr.External, "clearing jobs", err)
	}

	ids, err := source.Jobs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		j, err := source.Get(id)
		if err != nil {
			return err
		}
		metaJSON, err := json.Marshal(j.Metadata)
		if err != nil {
			return rerr.Wrap(rerr.Invalid, "encoding job metadata", err)
		}
		ts := ""
		if j.Timestamp != nil {
			ts = j.Timestamp.UTC().Format(time.RFC3339)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO jobs (id, timestamp, metadata) VALUES (?, ?, ?)`, j.ID, ts, string(metaJSON)); err != nil {
			return rerr.Wrap(rerr.External, "inserting job record", err)
		}
		if err := insertEdges(ctx, tx, j); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func decodeRecord(id, ts, metaJSON string) (Record, error) {
	rec := Record{ID: id}
	if ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return Record{}, rerr.Wrap(rerr.Invalid, "parsing indexed timestamp", err)
		}
		rec.Timestamp = t
	}
	if metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
			return Record{}, rerr.Wrap(rerr.Invalid, "decoding indexed metadata", err)
		}
	}
	return rec, nil
}
