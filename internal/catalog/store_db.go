package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-faster/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

// Schema is the products table the PostgresStore reads. position fixes
// catalog order.
const Schema = `
CREATE TABLE IF NOT EXISTS products (
	id             TEXT PRIMARY KEY,
	position       INTEGER NOT NULL,
	name           TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	price          NUMERIC(14, 2) NOT NULL,
	original_price NUMERIC(14, 2),
	discount       INTEGER,
	rating         DOUBLE PRECISION NOT NULL DEFAULT 0,
	sold_count     INTEGER NOT NULL DEFAULT 0,
	image          TEXT NOT NULL DEFAULT '',
	category       TEXT NOT NULL,
	featured       BOOLEAN NOT NULL DEFAULT FALSE
)`

const selectProducts = `
	SELECT id, name, description, price, original_price, discount,
	       rating, sold_count, image, category, featured
	FROM products
`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects through the pgx database/sql driver and checks the
// connection before returning.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := withTimeout(ctx, pingTimeout, db.PingContext); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return db, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, s.db.PingContext)
}

func (s *PostgresStore) List(ctx context.Context, f Filter) ([]Product, error) {
	var out []Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, selectProducts+`
			WHERE ($1 = '' OR lower(category) = lower($1))
			  AND ($2 = '' OR strpos(lower(name), lower($2)) > 0
			               OR strpos(lower(description), lower($2)) > 0)
			  AND (NOT $3 OR featured)
			ORDER BY position ASC, id ASC
		`, f.Category, f.Query, f.Featured)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, 16)
		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Product, bool, error) {
	var p Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var err error
		p, err = scanProduct(s.db.QueryRowContext(ctx, selectProducts+`WHERE id = $1`, id))
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, errors.Wrap(err, "get product")
	}
	return p, true, nil
}

// Insert writes products in order, assigning positions after the current
// maximum. Used to seed test databases.
func (s *PostgresStore) Insert(ctx context.Context, products []Product) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var base int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), 0) FROM products`).Scan(&base); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO products (id, position, name, description, price, original_price,
			                      discount, rating, sold_count, image, category, featured)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, p := range products {
			var orig decimal.NullDecimal
			if p.OriginalPrice != nil {
				orig = decimal.NewNullDecimal(*p.OriginalPrice)
			}
			var disc sql.NullInt32
			if p.Discount != nil {
				disc = sql.NullInt32{Int32: int32(*p.Discount), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx,
				p.ID, base+i+1, p.Name, p.Description, p.Price, orig,
				disc, p.Rating, p.SoldCount, p.Image, p.Category, p.Featured,
			); err != nil {
				return errors.Wrapf(err, "insert %s", p.ID)
			}
		}
		return tx.Commit()
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var (
		p    Product
		orig decimal.NullDecimal
		disc sql.NullInt32
	)
	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &orig, &disc,
		&p.Rating, &p.SoldCount, &p.Image, &p.Category, &p.Featured,
	); err != nil {
		return Product{}, err
	}
	if orig.Valid {
		v := orig.Decimal
		p.OriginalPrice = &v
	}
	if disc.Valid {
		v := int(disc.Int32)
		p.Discount = &v
	}
	return p, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
