package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// SQLiteRepository is the Store of one budget table in a SQLite database.
type SQLiteRepository struct {
	db    *sql.DB
	tx    *sql.Tx
	table string
}

func NewSQLiteRepository(db *sql.DB, budget string) *SQLiteRepository {
	return &SQLiteRepository{db: db, table: quoteSQLite(budget)}
}

func quoteSQLite(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (r *SQLiteRepository) getQueryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *SQLiteRepository) WithTransaction(ctx context.Context, fn func(store Store) error) error {
	if r.tx != nil {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fail("begin", "could not begin transaction", err)
	}
	defer func() {
		// no-op once committed
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	if err := fn(&SQLiteRepository{db: r.db, tx: tx, table: r.table}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fail("commit", "could not commit transaction", err)
	}
	return nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, entry Entry) (Record, error) {
	query := fmt.Sprintf(`INSERT INTO %s (date, reason, amount) VALUES (?, ?, ?)`, r.table)
	result, err := r.getQueryer().ExecContext(ctx, query, entry.Date.String(), entry.Reason, entry.Amount.InexactFloat64())
	if err != nil {
		return Record{}, fail("insert", "could not insert record", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return Record{}, fail("insert", "could not retrieve last insert id", err)
	}
	return Record{ID: id, Entry: entry}, nil
}

func (r *SQLiteRepository) DeleteByValue(ctx context.Context, entry Entry) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE date = ? AND reason = ? AND amount = ?`, r.table)
	result, err := r.getQueryer().ExecContext(ctx, query, entry.Date.String(), entry.Reason, entry.Amount.InexactFloat64())
	if err != nil {
		return fail("delete", "could not delete record", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fail("delete", "could not get rows affected", err)
	}
	log.Debugf("deleted %d record(s) matching %s", rowsAffected, entry)
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.getQueryer().QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.table)).Scan(&count)
	if err != nil {
		return 0, fail("count", "could not count records", err)
	}
	return count, nil
}

func (r *SQLiteRepository) FirstDate(ctx context.Context) (Date, error) {
	var date sql.NullString
	err := r.getQueryer().QueryRowContext(ctx, fmt.Sprintf(`SELECT MIN(date) FROM %s`, r.table)).Scan(&date)
	if err != nil {
		return Date{}, fail("first date", "could not query first date", err)
	}
	if !date.Valid {
		return Date{}, ErrEmptyStore
	}
	return parseStoredDate(date.String)
}

func (r *SQLiteRepository) LastDate(ctx context.Context) (Date, error) {
	var date string
	err := r.getQueryer().QueryRowContext(ctx, fmt.Sprintf(`SELECT date FROM %s ORDER BY id DESC LIMIT 1`, r.table)).Scan(&date)
	if errors.Is(err, sql.ErrNoRows) {
		return Date{}, ErrEmptyStore
	}
	if err != nil {
		return Date{}, fail("last date", "could not query last date", err)
	}
	return parseStoredDate(date)
}

func (r *SQLiteRepository) DateBefore(ctx context.Context, d Date) (Date, bool, error) {
	var date sql.NullString
	err := r.getQueryer().QueryRowContext(ctx, fmt.Sprintf(`SELECT MAX(date) FROM %s WHERE date < ?`, r.table), d.String()).Scan(&date)
	if err != nil {
		return Date{}, false, fail("date before", "could not query previous date", err)
	}
	if !date.Valid {
		return Date{}, false, nil
	}
	prev, err := parseStoredDate(date.String)
	return prev, err == nil, err
}

func (r *SQLiteRepository) RecordsOnDate(ctx context.Context, d Date) ([]Record, error) {
	query := fmt.Sprintf(`SELECT id, date, reason, amount FROM %s WHERE date = ? ORDER BY id DESC`, r.table)
	return r.query(ctx, "records on date", query, d.String())
}

func (r *SQLiteRepository) RecordsInMonth(ctx context.Context, ym YearMonth) ([]Record, error) {
	query := fmt.Sprintf(`SELECT id, date, reason, amount FROM %s WHERE date LIKE ? ORDER BY id DESC`, r.table)
	return r.query(ctx, "records in month", query, ym.String()+"-%")
}

func (r *SQLiteRepository) RecordsBeforeOrAtId(ctx context.Context, id int, count int) ([]Record, error) {
	total, err := r.Count(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkWindow(id, count, total); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id, date, reason, amount FROM %s ORDER BY id DESC LIMIT ? OFFSET ?`, r.table)
	return r.query(ctx, "records before id", query, count, total-id)
}

func (r *SQLiteRepository) PositionOf(ctx context.Context, id int64) (int, error) {
	var position int
	err := r.getQueryer().QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE id <= ?`, r.table), id).Scan(&position)
	if err != nil {
		return 0, fail("position", "could not query record position", err)
	}
	return position, nil
}

func (r *SQLiteRepository) MonthlyTotal(ctx context.Context, ym YearMonth) (decimal.Decimal, error) {
	records, err := r.RecordsInMonth(ctx, ym)
	if err != nil {
		return decimal.Zero, err
	}
	return Sum(records), nil
}

func (r *SQLiteRepository) All(ctx context.Context) ([]Record, error) {
	return r.query(ctx, "all records", fmt.Sprintf(`SELECT id, date, reason, amount FROM %s ORDER BY id`, r.table))
}

func (r *SQLiteRepository) query(ctx context.Context, op string, query string, args ...interface{}) ([]Record, error) {
	rows, err := r.getQueryer().QueryContext(ctx, query, args...)
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

func parseStoredDate(s string) (Date, error) {
	d, err := ParseDate(s)
	if err != nil {
		return Date{}, fail("decode", "could not parse stored date", err)
	}
	return d, nil
}

// SQLiteProvisioner creates one table per budget in a shared SQLite database.
type SQLiteProvisioner struct {
	db      *sql.DB
	backend string
}

func NewSQLiteProvisioner(db *sql.DB, backend string) *SQLiteProvisioner {
	return &SQLiteProvisioner{db: db, backend: backend}
}

func (p *SQLiteProvisioner) Backend() string {
	return p.backend
}

func (p *SQLiteProvisioner) Provision(ctx context.Context, budget string) (Store, error) {
	name, err := ParseBudgetName(budget)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		reason TEXT NOT NULL,
		amount REAL NOT NULL
	)`, quoteSQLite(name))
	if _, err := p.db.ExecContext(ctx, query); err != nil {
		return nil, fail("provision", fmt.Sprintf("could not create table for budget %s", name), err)
	}
	return NewSQLiteRepository(p.db, name), nil
}
