package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vtable/vtable/internal/errs"
	"github.com/vtable/vtable/internal/model"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Postgres implements Store on PostgreSQL using pgx.
type Postgres struct {
	pool *pgxpool.Pool
	q    querier
	inTx bool
}

// NewPostgres connects a pool to dsn. maxConns <= 0 keeps the pgx default.
func NewPostgres(ctx context.Context, dsn string, maxConns int) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging PostgreSQL: %w", err)
	}
	return &Postgres{pool: pool, q: pool}, nil
}

// Migrate creates the physical relations if they do not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := p.q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying migration %d: %w", i+1, err)
		}
	}
	return nil
}

func (p *Postgres) Close() {
	if p.pool != nil && !p.inTx {
		p.pool.Close()
	}
}

func (p *Postgres) InTx(ctx context.Context, fn func(tx Store) error) error {
	if p.inTx {
		return fn(p)
	}
	return pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(&Postgres{pool: p.pool, q: tx, inTx: true})
	})
}

const schemaColumns = `id, name, description, deleted, delete_date`

func scanSchema(row pgx.Row) (*model.Schema, error) {
	var s model.Schema
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Deleted, &s.DeleteDate); err != nil {
		return nil, err
	}
	return &s, nil
}

func (p *Postgres) FindSchemaByName(ctx context.Context, name string, includeDeleted bool) (*model.Schema, error) {
	sql := `SELECT ` + schemaColumns + ` FROM vt_schema WHERE name = $1`
	if !includeDeleted {
		sql += ` AND NOT deleted AND delete_date IS NULL`
	}
	sql += ` ORDER BY deleted, id DESC LIMIT 1`

	s, err := scanSchema(p.q.QueryRow(ctx, sql, name))
	if err != nil {
		return nil, notFound(err, "schema %q", name)
	}
	return s, nil
}

func (p *Postgres) GetSchema(ctx context.Context, id int64) (*model.Schema, error) {
	s, err := scanSchema(p.q.QueryRow(ctx, `SELECT `+schemaColumns+` FROM vt_schema WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "schema %d", id)
	}
	return s, nil
}

func (p *Postgres) CreateSchema(ctx context.Context, s *model.Schema) error {
	err := p.q.QueryRow(ctx,
		`INSERT INTO vt_schema (name, description) VALUES ($1, $2) RETURNING id`,
		s.Name, s.Description,
	).Scan(&s.ID)
	if err != nil {
		return uniqueViolation(err, "schema %q", s.Name)
	}
	return nil
}

func (p *Postgres) SoftDeleteSchema(ctx context.Context, id int64, at time.Time) (*model.Schema, error) {
	s, err := scanSchema(p.q.QueryRow(ctx,
		`UPDATE vt_schema SET deleted = TRUE, delete_date = $2
		 WHERE id = $1 AND NOT deleted
		 RETURNING `+schemaColumns,
		id, at,
	))
	if err != nil {
		return nil, notFound(err, "schema %d", id)
	}
	return s, nil
}

func (p *Postgres) ListSchemas(ctx context.Context, offset, limit int, includeDeleted bool) ([]model.Schema, int64, error) {
	where := ` WHERE NOT deleted`
	if includeDeleted {
		where = ``
	}

	var total int64
	if err := p.q.QueryRow(ctx, `SELECT COUNT(*) FROM vt_schema`+where).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting schemas: %w", err)
	}

	rows, err := p.q.Query(ctx,
		`SELECT `+schemaColumns+` FROM vt_schema`+where+` ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing schemas: %w", err)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Schema, error) {
		s, err := scanSchema(row)
		if err != nil {
			return model.Schema{}, err
		}
		return *s, nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("scanning schemas: %w", err)
	}
	return items, total, nil
}

func (p *Postgres) LockSchema(ctx context.Context, id int64) error {
	sql := `SELECT id FROM vt_schema WHERE id = $1`
	if p.inTx {
		sql += ` FOR UPDATE`
	}
	var got int64
	if err := p.q.QueryRow(ctx, sql, id).Scan(&got); err != nil {
		return notFound(err, "schema %d", id)
	}
	return nil
}

const fieldColumns = `id, name, meta, ref_id, schema_id, deleted`

func scanField(row pgx.Row) (*model.Field, error) {
	var f model.Field
	var meta *string
	if err := row.Scan(&f.ID, &f.Name, &meta, &f.RefID, &f.SchemaID, &f.Deleted); err != nil {
		return nil, err
	}
	if meta != nil {
		f.Meta = *meta
	}
	return &f, nil
}

func (p *Postgres) ListFields(ctx context.Context, schemaID int64, includeDeleted bool) ([]model.Field, error) {
	sql := `SELECT ` + fieldColumns + ` FROM vt_field WHERE schema_id = $1`
	if !includeDeleted {
		sql += ` AND NOT deleted`
	}
	sql += ` ORDER BY id`

	rows, err := p.q.Query(ctx, sql, schemaID)
	if err != nil {
		return nil, fmt.Errorf("listing fields: %w", err)
	}
	fields, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Field, error) {
		f, err := scanField(row)
		if err != nil {
			return model.Field{}, err
		}
		return *f, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning fields: %w", err)
	}
	return fields, nil
}

func (p *Postgres) FindField(ctx context.Context, schemaID int64, name string) (*model.Field, error) {
	f, err := scanField(p.q.QueryRow(ctx,
		`SELECT `+fieldColumns+` FROM vt_field WHERE schema_id = $1 AND name = $2 AND NOT deleted ORDER BY id LIMIT 1`,
		schemaID, name,
	))
	if err != nil {
		return nil, notFound(err, "field %q", name)
	}
	return f, nil
}

func (p *Postgres) CreateField(ctx context.Context, f *model.Field) error {
	err := p.q.QueryRow(ctx,
		`INSERT INTO vt_field (name, meta, ref_id, schema_id) VALUES ($1, $2, $3, $4) RETURNING id`,
		f.Name, f.Meta, f.RefID, f.SchemaID,
	).Scan(&f.ID)
	if err != nil {
		return uniqueViolation(err, "field %q", f.Name)
	}
	return nil
}

func (p *Postgres) CreateEntity(ctx context.Context, e *model.Entity) error {
	err := p.q.QueryRow(ctx,
		`INSERT INTO vt_entity ("key", schema_id) VALUES ($1, $2) RETURNING id`,
		e.Key, e.SchemaID,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("inserting entity: %w", err)
	}
	return nil
}

func (p *Postgres) HasEntities(ctx context.Context, schemaID int64) (bool, error) {
	var exists bool
	err := p.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM vt_entity WHERE schema_id = $1 AND NOT deleted)`,
		schemaID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking entities: %w", err)
	}
	return exists, nil
}

func (p *Postgres) ListEntities(ctx context.Context, schemaID, afterID int64, limit int) ([]model.Entity, error) {
	rows, err := p.q.Query(ctx,
		`SELECT id, "key", schema_id, deleted FROM vt_entity
		 WHERE schema_id = $1 AND NOT deleted AND id > $2
		 ORDER BY id LIMIT $3`,
		schemaID, afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	entities, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Entity, error) {
		var e model.Entity
		err := row.Scan(&e.ID, &e.Key, &e.SchemaID, &e.Deleted)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning entities: %w", err)
	}
	return entities, nil
}

func (p *Postgres) InsertValues(ctx context.Context, values []model.Value) (int64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	n, err := p.q.CopyFrom(ctx,
		pgx.Identifier{"vt_value"},
		[]string{"value", "field_id", "entity_id"},
		pgx.CopyFromSlice(len(values), func(i int) ([]any, error) {
			v := values[i]
			return []any{v.Value, v.FieldID, v.EntityID}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copying values: %w", err)
	}
	return n, nil
}

func (p *Postgres) ListValues(ctx context.Context, entityIDs []int64) ([]model.Value, error) {
	if len(entityIDs) == 0 {
		return nil, nil
	}
	rows, err := p.q.Query(ctx,
		`SELECT id, value, field_id, entity_id, deleted FROM vt_value
		 WHERE entity_id = ANY($1) AND NOT deleted ORDER BY id`,
		entityIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("listing values: %w", err)
	}
	values, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Value, error) {
		var v model.Value
		err := row.Scan(&v.ID, &v.Value, &v.FieldID, &v.EntityID, &v.Deleted)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning values: %w", err)
	}
	return values, nil
}

func notFound(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", errs.ErrNotFound, what)
	}
	return fmt.Errorf("reading %s: %w", what, err)
}

func uniqueViolation(err error, format string, args ...any) error {
	what := fmt.Sprintf(format, args...)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", errs.ErrAlreadyExists, what)
	}
	return fmt.Errorf("inserting %s: %w", what, err)
}
