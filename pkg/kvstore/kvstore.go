// Package kvstore keeps named JSON documents in a single SQL table. It backs both the
// self-contained backend (one document per entity collection) and the console's
// persistent client storage.
package kvstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-portal/pkg/kvstore/migrations"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"

	tableName = `collections`
)

var ErrUnknownDriver = errors.New("unknown db driver")

type Config struct {
	Driver          string        `yaml:"driver" envconfig:"DB_DRIVER" default:"sqlite3"`
	DSN             string        `yaml:"dsn" envconfig:"DB_DSN" default:"library.db"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime" envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// Querier reads and writes documents either directly or inside a transaction.
type Querier interface {
	Get(ctx context.Context, name string) ([]byte, bool, error)
	Put(ctx context.Context, name string, payload []byte) error
	Delete(ctx context.Context, name string) error
}

var (
	_ Querier = (*Store)(nil)
	_ Querier = (*Tx)(nil)
)

type Store struct {
	db  *sqlx.DB
	qb  sq.StatementBuilderType
	log *zap.Logger
}

// Open connects to the database and applies the embedded migrations.
func Open(ctx context.Context, cfg Config, log *zap.Logger) (*Store, error) {
	var (
		dialect     string
		placeholder sq.PlaceholderFormat
	)
	switch cfg.Driver {
	case DriverSQLite:
		dialect, placeholder = "sqlite3", sq.Question
	case DriverPostgres:
		dialect, placeholder = "postgres", sq.Dollar
	default:
		return nil, errors.Wrap(ErrUnknownDriver, cfg.Driver)
	}

	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}
	if cfg.Driver == DriverSQLite {
		// one writer at a time, or sqlite answers "database is locked"
		db.SetMaxOpenConns(1)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := migrate(db.DB, dialect, migrations.MigrationFiles, log); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	return &Store{
		db:  db,
		qb:  sq.StatementBuilder.PlaceholderFormat(placeholder),
		log: log.Named("kvstore"),
	}, nil
}

// goose keeps its base FS, dialect and logger in package globals.
var migrateMu sync.Mutex

func migrate(db *sql.DB, dialect string, files fs.FS, log *zap.Logger) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()
	goose.SetBaseFS(files)
	goose.SetLogger(gooseLogger{log.Named("goose").Sugar()})
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.Up(db, ".")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, name string) ([]byte, bool, error) {
	return get(ctx, s.db, s.qb, name)
}

func (s *Store) Put(ctx context.Context, name string, payload []byte) error {
	return put(ctx, s.db, s.qb, name, payload)
}

func (s *Store) Delete(ctx context.Context, name string) error {
	return del(ctx, s.db, s.qb, name)
}

// Update runs fn in a transaction and commits when fn returns nil.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	return s.inTx(ctx, nil, fn)
}

// View runs fn in a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	return s.inTx(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

func (s *Store) inTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *Tx) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, opts)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.log.Warn("rollback", zap.Error(rbErr))
			}
		}
	}()
	if err = fn(&Tx{tx: tx, qb: s.qb}); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit")
}

type Tx struct {
	tx *sqlx.Tx
	qb sq.StatementBuilderType
}

func (t *Tx) Get(ctx context.Context, name string) ([]byte, bool, error) {
	return get(ctx, t.tx, t.qb, name)
}

func (t *Tx) Put(ctx context.Context, name string, payload []byte) error {
	return put(ctx, t.tx, t.qb, name, payload)
}

func (t *Tx) Delete(ctx context.Context, name string) error {
	return del(ctx, t.tx, t.qb, name)
}

type execer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func get(ctx context.Context, db execer, qb sq.StatementBuilderType, name string) ([]byte, bool, error) {
	query, args, err := qb.Select("payload").
		From(tableName).
		Where(sq.Eq{"name": name}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, false, err
	}
	var payload string
	if err := db.GetContext(ctx, &payload, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "get %s", name)
	}
	return []byte(payload), true, nil
}

func put(ctx context.Context, db execer, qb sq.StatementBuilderType, name string, payload []byte) error {
	query, args, err := qb.Insert(tableName).
		Columns("name", "payload", "updated_at").
		Values(name, string(payload), time.Now().UTC()).
		Suffix("ON CONFLICT (name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, query, args...)
	return errors.Wrapf(err, "put %s", name)
}

func del(ctx context.Context, db execer, qb sq.StatementBuilderType, name string) error {
	query, args, err := qb.Delete(tableName).
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, query, args...)
	return errors.Wrapf(err, "delete %s", name)
}

// Load decodes the JSON array stored under name. A missing document is an empty list.
func Load[T any](ctx context.Context, q Querier, name string) ([]T, error) {
	payload, ok, err := q.Get(ctx, name)
	if err != nil || !ok {
		return nil, err
	}
	var items []T
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return items, nil
}

func Save[T any](ctx context.Context, q Querier, name string, items []T) error {
	if items == nil {
		items = []T{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return q.Put(ctx, name, payload)
}

type gooseLogger struct {
	*zap.SugaredLogger
}

func (l gooseLogger) Print(v ...interface{})                 { l.Info(v...) }
func (l gooseLogger) Println(v ...interface{})               { l.Info(v...) }
func (l gooseLogger) Printf(format string, v ...interface{}) { l.Infof(format, v...) }
