package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// PgQuerier is satisfied by *pgxpool.Pool and pgx.Tx.
type PgQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PgConn is a PgQuerier able to start transactions.
type PgConn interface {
	PgQuerier
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ PgConn = (*pgxpool.Pool)(nil)
var _ PgQuerier = (pgx.Tx)(nil)

// PgRepository is the Store of one budget table in Postgres.
type PgRepository struct {
	conn  PgConn
	tx    pgx.Tx
	table string
}

func NewPgRepository(conn PgConn, budget string) *PgRepository {
	return &PgRepository{conn: conn, table: pgx.Identifier{budget}.Sanitize()}
}

func (r *PgRepository) querier() PgQuerier {
	if r.tx != nil {
		return r.tx
	}
	return r.conn
}

func (r *PgRepository) WithTransaction(ctx context.Context, fn func(store Store) error) error {
	if r.tx != nil {
		return fn(r)
	}
	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return fail("begin", "could not begin transaction", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	if err := fn(&PgRepository{conn: r.conn, tx: tx, table: r.table}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fail("commit", "could not commit transaction", err)
	}
	return nil
}

func (r *PgRepository) Insert(ctx context.Context, entry Entry) (Record, error) {
	query := fmt.Sprintf(`INSERT INTO %s (date, reason, amount) VALUES ($1, $2, $3) RETURNING id`, r.table)
	var id int64
	err := r.querier().QueryRow(ctx, query, entry.Date.String(), entry.Reason, entry.Amount.InexactFloat64()).Scan(&id)
	if err != nil {
		return Record{}, fail("insert", "could not insert record", err)
	}
	return Record{ID: id, Entry: entry}, nil
}

func (r *PgRepository) DeleteByValue(ctx context.Context, entry Entry) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE date = $1 AND reason = $2 AND amount = $3`, r.table)
	tag, err := r.querier().Exec(ctx, query, entry.Date.String(), entry.Reason, entry.Amount.InexactFloat64())
	if err != nil {
		return fail("delete", "could not delete record", err)
	}
	log.Debugf("deleted %d record(s) matching %s", tag.RowsAffected(), entry)
	return nil
}

func (r *PgRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.querier().QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.table)).Scan(&count)
	if err != nil {
		return 0, fail("count", "could not count records", err)
	}
	return count, nil
}

func (r *PgRepository) FirstDate(ctx context.Context) (Date, error) {
	var date sql.NullString
	err := r.querier().QueryRow(ctx, fmt.Sprintf(`SELECT MIN(date) FROM %s`, r.table)).Scan(&date)
	if err != nil {
		return Date{}, fail("first date", "could not query first date", err)
	}
	if !date.Valid {
		return Date{}, ErrEmptyStore
	}
	return parseStoredDate(date.String)
}

func (r *PgRepository) LastDate(ctx context.Context) (Date, error) {
	var date string
	err := r.querier().QueryRow(ctx, fmt.Sprintf(`SELECT date FROM %s ORDER BY id DESC LIMIT 1`, r.table)).Scan(&date)
	if errors.Is(err, pgx.ErrNoRows) {
		return Date{}, ErrEmptyStore
	}
	if err != nil {
		return Date{}, fail("last date", "could not query last date", err)
	}
	return parseStoredDate(date)
}

func (r *PgRepository) DateBefore(ctx context.Context, d Date) (Date, bool, error) {
	var date sql.NullString
	err := r.querier().QueryRow(ctx, fmt.Sprintf(`SELECT MAX(date) FROM %s WHERE date < $1`, r.table), d.String()).Scan(&date)
	if err != nil {
		return Date{}, false, fail("date before", "could not query previous date", err)
	}
	if !date.Valid {
		return Date{}, false, nil
	}
	prev, err := parseStoredDate(date.String)
	return prev, err == nil, err
}

func (r *PgRepository) RecordsOnDate(ctx context.Context, d Date) ([]Record, error) {
	query := fmt.Sprintf(`SELECT id, date, reason, amount FROM %s WHERE date = $1 ORDER BY id DESC`, r.table)
	return r.query(ctx, "records on date", query, d.String())
}

func (r *PgRepository) RecordsInMonth(ctx context.Context, ym YearMonth) ([]Record, error) {
	query := fmt.Sprintf(`SELECT id, date, reason, amount FROM %s WHERE date LIKE $1 ORDER BY id DESC`, r.table)
	return r.query(ctx, "records in month", query, ym.String()+"-%")
}

func (r *PgRepository) RecordsBeforeOrAtId(ctx context.Context, id int, count int) ([]Record, error) {
	total, err := r.Count(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkWindow(id, count, total); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id, date, reason, amount FROM %s ORDER BY id DESC LIMIT $1 OFFSET $2`, r.table)
	return r.query(ctx, "records before id", query, count, total-id)
}

func (r *PgRepository) PositionOf(ctx context.Context, id int64) (int, error) {
	var position int
	err := r.querier().QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE id <= $1`, r.table), id).Scan(&position)
	if err != nil {
		return 0, fail("position", "could not query record position", err)
	}
	return position, nil
}

func (r *PgRepository) MonthlyTotal(ctx context.Context, ym YearMonth) (decimal.Decimal, error) {
	records, err := r.RecordsInMonth(ctx, ym)
	if err != nil {
		return decimal.Zero, err
	}
	return Sum(records), nil
}

func (r *PgRepository) All(ctx context.Context) ([]Record, error) {
	return r.query(ctx, "all records", fmt.Sprintf(`SELECT id, date, reason, amount FROM %s ORDER BY id`, r.table))
}

func (r *PgRepository) query(ctx context.Context, op string, query string, args ...interface{}) ([]Record, error) {
	rows, err := r.querier().Query(ctx, query, args...)
	if err != nil {
		return nil, fail(op, "could not query records", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			rec    Record
			date   string
			amount float64
		)
		if err := rows.Scan(&rec.ID, &date, &rec.Reason, &amount); err != nil {
			return nil, fail(op, "could not scan record", err)
		}
		if rec.Date, err = parseStoredDate(date); err != nil {
			return nil, err
		}
		rec.Amount = decimal.NewFromFloat(amount)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(op, "error iterating over rows", err)
	}
	return records, nil
}

// PgProvisioner creates one table per budget in the configured Postgres schema.
type PgProvisioner struct {
	conn    PgConn
	backend string
}

func NewPgProvisioner(conn PgConn, backend string) *PgProvisioner {
	return &PgProvisioner{conn: conn, backend: backend}
}

func (p *PgProvisioner) Backend() string {
	return p.backend
}

func (p *PgProvisioner) Provision(ctx context.Context, budget string) (Store, error) {
	name, err := ParseBudgetName(budget)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id BIGSERIAL PRIMARY KEY,
		date TEXT NOT NULL,
		reason TEXT NOT NULL,
		amount DOUBLE PRECISION NOT NULL
	)`, pgx.Identifier{name}.Sanitize())
	if _, err := p.conn.Exec(ctx, query); err != nil {
		return nil, fail("provision", fmt.Sprintf("could not create table for budget %s", name), err)
	}
	return NewPgRepository(p.conn, name), nil
}
