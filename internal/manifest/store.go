// Package manifest 给输出文件评级，并把元数据记录到 SQLite 清单中。
package manifest

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"afterglow-engine/internal/types"

	_ "modernc.org/sqlite"
)

// Entry 清单中的一条记录
type Entry struct {
	Filename    string
	Source      string
	Kind        string
	DurationSec float64
	Quality     types.Quality
	Saved       bool
	Seed        *int64
	CreatedAt   time.Time
}

// Sink 接收输出记录
type Sink interface {
	Record(e Entry) error
}

// Store 基于 SQLite 的清单，可被多个 worker 同时写入
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS outputs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	filename TEXT NOT NULL,
	source TEXT NOT NULL,
	kind TEXT NOT NULL,
	duration_sec REAL NOT NULL,
	rms_db REAL NOT NULL,
	peak REAL NOT NULL,
	crest_factor REAL NOT NULL,
	centroid_hz REAL NOT NULL,
	loop_error_db REAL,
	brightness TEXT,
	grade TEXT,
	saved BOOLEAN NOT NULL DEFAULT 1,
	seed INTEGER,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outputs_source ON outputs(source);
`

// Open 打开（必要时创建）清单数据库
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建清单目录失败: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开清单数据库失败: %w", err)
	}
	// 单连接，写入由 mu 串行化
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("创建清单表失败: %w", err)
	}

	return &Store{db: db}, nil
}

// Record 写入一条记录
func (s *Store) Record(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	var loopErr sql.NullFloat64
	if e.Quality.LoopErrorDB != nil {
		loopErr = sql.NullFloat64{Float64: *e.Quality.LoopErrorDB, Valid: true}
	}
	var seed sql.NullInt64
	if e.Seed != nil {
		seed = sql.NullInt64{Int64: *e.Seed, Valid: true}
	}

	_, err := s.db.Exec(`INSERT INTO outputs
		(filename, source, kind, duration_sec, rms_db, peak, crest_factor, centroid_hz,
		 loop_error_db, brightness, grade, saved, seed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Filename, e.Source, e.Kind, e.DurationSec,
		e.Quality.RMSDB, e.Quality.Peak, e.Quality.CrestFactor, e.Quality.CentroidHz,
		loopErr, e.Quality.Brightness, e.Quality.Grade, e.Saved, seed, e.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("写入清单失败: %s: %w", e.Filename, err)
	}
	return nil
}

// Entries 按写入顺序返回 source 的全部记录；source 为空时返回所有记录
func (s *Store) Entries(source string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT filename, source, kind, duration_sec, rms_db, peak, crest_factor, centroid_hz,
		loop_error_db, brightness, grade, saved, seed, created_at FROM outputs`
	var args []any
	if source != "" {
		query += " WHERE source = ?"
		args = append(args, source)
	}
	query += " ORDER BY id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询清单失败: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			loopErr    sql.NullFloat64
			brightness sql.NullString
			grade      sql.NullString
			seed       sql.NullInt64
			created    int64
		)
		if err := rows.Scan(&e.Filename, &e.Source, &e.Kind, &e.DurationSec,
			&e.Quality.RMSDB, &e.Quality.Peak, &e.Quality.CrestFactor, &e.Quality.CentroidHz,
			&loopErr, &brightness, &grade, &e.Saved, &seed, &created); err != nil {
			return nil, fmt.Errorf("读取清单记录失败: %w", err)
		}
		if loopErr.Valid {
			v := loopErr.Float64
			e.Quality.LoopErrorDB = &v
		}
		if seed.Valid {
			v := seed.Int64
			e.Seed = &v
		}
		e.Quality.Brightness = brightness.String
		e.Quality.Grade = grade.String
		e.CreatedAt = time.Unix(created, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("读取清单记录失败: %w", err)
	}
	return entries, nil
}

// Close 关闭数据库
func (s *Store) Close() error {
	return s.db.Close()
}
