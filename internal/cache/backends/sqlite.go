package backends

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"lukechampine.com/uint128"

	"github.com/sinclairtarget/git-loc/internal/cache"
	"github.com/sinclairtarget/git-loc/internal/tally"
)

const SQLiteBackendName = "sqlite"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	project_id TEXT NOT NULL,
	config_hash TEXT NOT NULL,
	format_version INTEGER NOT NULL,
	commit_hash TEXT NOT NULL,
	last_updated DATETIME NOT NULL,
	PRIMARY KEY (project_id, config_hash)
);

CREATE TABLE IF NOT EXISTS snapshot_files (
	project_id TEXT NOT NULL,
	config_hash TEXT NOT NULL,
	path TEXT NOT NULL,
	PRIMARY KEY (project_id, config_hash, path)
);

CREATE TABLE IF NOT EXISTS file_counts (
	project_id TEXT NOT NULL,
	config_hash TEXT NOT NULL,
	path TEXT NOT NULL,
	author TEXT NOT NULL,
	lines_lo INTEGER NOT NULL,
	lines_hi INTEGER NOT NULL,
	PRIMARY KEY (project_id, config_hash, path, author)
);
`

// Stores snapshots in a SQLite database shared by all projects.
//
// Counts are 128-bit; they are kept as two 64-bit halves, each stored as the
// signed integer with the same bits.
type SQLiteBackend struct {
	Path        string
	MaxVariants int

	db *sqlx.DB
}

type snapshotRow struct {
	ProjectID     string    `db:"project_id"`
	ConfigHash    string    `db:"config_hash"`
	FormatVersion int       `db:"format_version"`
	CommitHash    string    `db:"commit_hash"`
	LastUpdated   time.Time `db:"last_updated"`
}

type countRow struct {
	Path    string `db:"path"`
	Author  string `db:"author"`
	LinesLo int64  `db:"lines_lo"`
	LinesHi int64  `db:"lines_hi"`
}

func NewSQLiteBackend(dir string, maxVariants int) *SQLiteBackend {
	return &SQLiteBackend{
		Path:        filepath.Join(dir, "git-loc.sqlite"),
		MaxVariants: maxVariants,
	}
}

func (b *SQLiteBackend) Name() string {
	return SQLiteBackendName
}

func (b *SQLiteBackend) Open() error {
	err := os.MkdirAll(filepath.Dir(b.Path), 0o700)
	if err != nil {
		return err
	}

	db, err := sqlx.Connect("sqlite3", b.Path+"?_busy_timeout=1000")
	if err != nil {
		return fmt.Errorf("connect to sqlite: %w", err)
	}

	// One writer at a time keeps SQLite from returning SQLITE_BUSY to
	// ourselves.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(sqliteSchema)
	if err != nil {
		db.Close()
		return fmt.Errorf("init schema: %w", err)
	}

	b.db = db
	return nil
}

func (b *SQLiteBackend) Close() error {
	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	return err
}

func (b *SQLiteBackend) Get(key cache.Key) (cache.Snapshot, bool, error) {
	if b.db == nil {
		panic("cache not yet open. Did you forget to call Open()?")
	}

	var row snapshotRow
	err := b.db.Get(
		&row,
		`SELECT project_id, config_hash, format_version, commit_hash, last_updated
		FROM snapshots WHERE project_id = ? AND config_hash = ?`,
		key.ProjectID,
		key.ConfigHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return cache.Snapshot{}, false, nil
	} else if err != nil {
		return cache.Snapshot{}, false, err
	}

	var paths []string
	err = b.db.Select(
		&paths,
		`SELECT path FROM snapshot_files WHERE project_id = ? AND config_hash = ?`,
		key.ProjectID,
		key.ConfigHash,
	)
	if err != nil {
		return cache.Snapshot{}, false, err
	}

	var counts []countRow
	err = b.db.Select(
		&counts,
		`SELECT path, author, lines_lo, lines_hi
		FROM file_counts WHERE project_id = ? AND config_hash = ?`,
		key.ProjectID,
		key.ConfigHash,
	)
	if err != nil {
		return cache.Snapshot{}, false, err
	}

	files := make(map[string]tally.Counts, len(paths))
	for _, p := range paths {
		files[p] = tally.Counts{}
	}

	for _, c := range counts {
		fileCounts, ok := files[c.Path]
		if !ok {
			return cache.Snapshot{}, false, fmt.Errorf(
				"%w: counts for unknown file %q",
				cache.ErrCorrupt,
				c.Path,
			)
		}

		fileCounts[c.Author] = uint128.New(uint64(c.LinesLo), uint64(c.LinesHi))
	}

	return cache.Snapshot{
		FormatVersion: row.FormatVersion,
		ProjectID:     row.ProjectID,
		ConfigHash:    row.ConfigHash,
		Commit:        row.CommitHash,
		LastUpdated:   row.LastUpdated,
		Files:         files,
	}, true, nil
}

func (b *SQLiteBackend) Put(snapshot cache.Snapshot) (err error) {
	if b.db == nil {
		panic("cache not yet open. Did you forget to call Open()?")
	}

	tx, err := b.db.Beginx()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	err = deleteVariant(tx, snapshot.ProjectID, snapshot.ConfigHash)
	if err != nil {
		return err
	}

	_, err = tx.NamedExec(
		`INSERT INTO snapshots
		(project_id, config_hash, format_version, commit_hash, last_updated)
		VALUES
		(:project_id, :config_hash, :format_version, :commit_hash, :last_updated)`,
		snapshotRow{
			ProjectID:     snapshot.ProjectID,
			ConfigHash:    snapshot.ConfigHash,
			FormatVersion: snapshot.FormatVersion,
			CommitHash:    snapshot.Commit,
			LastUpdated:   snapshot.LastUpdated.UTC(),
		},
	)
	if err != nil {
		return err
	}

	fileStmt, err := tx.Preparex(
		`INSERT INTO snapshot_files (project_id, config_hash, path)
		VALUES (?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer fileStmt.Close()

	countStmt, err := tx.Preparex(
		`INSERT INTO file_counts
		(project_id, config_hash, path, author, lines_lo, lines_hi)
		VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer countStmt.Close()

	for path, counts := range snapshot.Files {
		_, err = fileStmt.Exec(snapshot.ProjectID, snapshot.ConfigHash, path)
		if err != nil {
			return err
		}

		for author, n := range counts {
			_, err = countStmt.Exec(
				snapshot.ProjectID,
				snapshot.ConfigHash,
				path,
				author,
				int64(n.Lo),
				int64(n.Hi),
			)
			if err != nil {
				return err
			}
		}
	}

	err = b.evict(tx, snapshot.ProjectID, snapshot.ConfigHash)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (b *SQLiteBackend) evict(tx *sqlx.Tx, projectID string, keep string) error {
	var rows []snapshotRow
	err := tx.Select(
		&rows,
		`SELECT project_id, config_hash, format_version, commit_hash, last_updated
		FROM snapshots WHERE project_id = ?`,
		projectID,
	)
	if err != nil {
		return err
	}

	ages := make([]variantAge, 0, len(rows))
	for _, row := range rows {
		ages = append(ages, variantAge{row.ConfigHash, row.LastUpdated})
	}

	for _, hash := range evictions(ages, b.MaxVariants, keep) {
		err := deleteVariant(tx, projectID, hash)
		if err != nil {
			return err
		}

		logger().Debug("evicted cache variant", "hash", hash)
	}

	return nil
}

func deleteVariant(tx *sqlx.Tx, projectID string, configHash string) error {
	for _, table := range []string{"file_counts", "snapshot_files", "snapshots"} {
		_, err := tx.Exec(
			fmt.Sprintf(
				"DELETE FROM %s WHERE project_id = ? AND config_hash = ?",
				table,
			),
			projectID,
			configHash,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (b *SQLiteBackend) Clear(projectID string) (err error) {
	if b.db == nil {
		panic("cache not yet open. Did you forget to call Open()?")
	}

	tx, err := b.db.Beginx()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, table := range []string{"file_counts", "snapshot_files", "snapshots"} {
		_, err = tx.Exec(
			fmt.Sprintf("DELETE FROM %s WHERE project_id = ?", table),
			projectID,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}
