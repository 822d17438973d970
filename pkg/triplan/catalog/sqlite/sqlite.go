package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"strings"
	"time"
	"unicode"

	_ "modernc.org/sqlite"

	"github.com/cognicore/triplan/pkg/triplan/catalog"
	"github.com/cognicore/triplan/pkg/triplan/internalerr"
)

// Catalog implements catalog.Catalog on top of SQLite
type Catalog struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite catalog with WAL mode enabled and ensures the
// schema exists.
func OpenSQLite(ctx context.Context, path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", internalerr.ErrStoreUnavailable, err)
	}

	return &Catalog{db: db}, nil
}

// Close closes the database connection
func (c *Catalog) Close() error {
	return c.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS offers (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT UNIQUE NOT NULL,
	kind TEXT NOT NULL,
	provider TEXT,
	origin TEXT,
	origin_key TEXT,
	destination TEXT,
	location TEXT,
	place_key TEXT,
	service_date TEXT,
	until_date TEXT,
	price INTEGER NOT NULL,
	rating REAL DEFAULT 0,
	available INTEGER NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS idx_offers_kind_place ON offers(kind, place_key);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// UpsertOffers inserts or updates offers in one transaction, keyed by ID.
// Updated offers keep their original catalog position.
func (c *Catalog) UpsertOffers(ctx context.Context, offers []catalog.Offer) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const stmt = `
INSERT INTO offers (id, kind, provider, origin, origin_key, destination, location, place_key, service_date, until_date, price, rating, available)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	kind=excluded.kind,
	provider=excluded.provider,
	origin=excluded.origin,
	origin_key=excluded.origin_key,
	destination=excluded.destination,
	location=excluded.location,
	place_key=excluded.place_key,
	service_date=excluded.service_date,
	until_date=excluded.until_date,
	price=excluded.price,
	rating=excluded.rating,
	available=excluded.available;
`
	prep, err := tx.PrepareContext(ctx, stmt)
	if err != nil {
		return err
	}
	defer prep.Close()

	for _, o := range offers {
		if o.ID == "" {
			return fmt.Errorf("offer without id: %w", internalerr.ErrInvalidInput)
		}
		if _, err := prep.ExecContext(ctx,
			o.ID,
			o.Kind.String(),
			o.Provider,
			o.Origin,
			foldKey(o.Origin),
			o.Destination,
			o.Location,
			foldKey(o.Place()),
			formatDate(o.Date),
			formatDate(o.Until),
			o.Price,
			o.Rating,
			boolToInt(o.Available),
		); err != nil {
			return fmt.Errorf("upsert offer %s: %w", o.ID, err)
		}
	}

	return tx.Commit()
}

// Count returns the number of stored offers.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM offers`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Find implements catalog.Catalog. Equality and price predicates run in SQL;
// the filter's own predicate is re-applied to every row so date-span
// semantics match the in-memory catalog exactly.
func (c *Catalog) Find(ctx context.Context, kind catalog.Kind, f catalog.Filter) iter.Seq2[catalog.Offer, error] {
	return func(yield func(catalog.Offer, error) bool) {
		query, args := buildQuery(kind, f)
		rows, err := c.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(catalog.Offer{}, fmt.Errorf("%w: query %s offers: %v", internalerr.ErrCatalogAccess, kind, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			o, err := scanOffer(rows)
			if err != nil {
				yield(catalog.Offer{}, fmt.Errorf("%w: %v", internalerr.ErrCatalogAccess, err))
				return
			}
			if !f.Match(o) {
				continue
			}
			if !yield(o, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(catalog.Offer{}, fmt.Errorf("%w: %v", internalerr.ErrCatalogAccess, err))
		}
	}
}

// All returns every stored offer in catalog order.
func (c *Catalog) All(ctx context.Context) ([]catalog.Offer, error) {
	var out []catalog.Offer
	for _, kind := range catalog.Kinds {
		offers, err := catalog.Collect(c.findAll(ctx, kind))
		if err != nil {
			return nil, err
		}
		out = append(out, offers...)
	}
	return out, nil
}

// findAll lists offers of a kind including unavailable ones.
func (c *Catalog) findAll(ctx context.Context, kind catalog.Kind) iter.Seq2[catalog.Offer, error] {
	return func(yield func(catalog.Offer, error) bool) {
		rows, err := c.db.QueryContext(ctx, selectColumns+` WHERE kind = ? ORDER BY seq`, kind.String())
		if err != nil {
			yield(catalog.Offer{}, fmt.Errorf("%w: %v", internalerr.ErrCatalogAccess, err))
			return
		}
		defer rows.Close()
		for rows.Next() {
			o, err := scanOffer(rows)
			if err != nil {
				yield(catalog.Offer{}, fmt.Errorf("%w: %v", internalerr.ErrCatalogAccess, err))
				return
			}
			if !yield(o, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(catalog.Offer{}, fmt.Errorf("%w: %v", internalerr.ErrCatalogAccess, err))
		}
	}
}

const selectColumns = `SELECT id, kind, provider, origin, destination, location, service_date, until_date, price, rating, available FROM offers`

func buildQuery(kind catalog.Kind, f catalog.Filter) (string, []any) {
	var b strings.Builder
	b.WriteString(selectColumns)
	b.WriteString(` WHERE kind = ? AND available = 1`)
	args := []any{kind.String()}

	if f.Origin != "" {
		b.WriteString(` AND origin_key = ?`)
		args = append(args, foldKey(f.Origin))
	}
	if len(f.Locations) > 0 {
		b.WriteString(` AND place_key IN (`)
		for i, loc := range f.Locations {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			args = append(args, foldKey(loc))
		}
		b.WriteString(")")
	}
	if f.MaxPrice > 0 {
		b.WriteString(` AND price <= ?`)
		args = append(args, f.MaxPrice)
	}
	b.WriteString(` ORDER BY seq`)
	return b.String(), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOffer(row scanner) (catalog.Offer, error) {
	var (
		o                              catalog.Offer
		kind, date, until              string
		provider, origin, dest, locate sql.NullString
		available                      int
	)
	if err := row.Scan(&o.ID, &kind, &provider, &origin, &dest, &locate, &date, &until, &o.Price, &o.Rating, &available); err != nil {
		return catalog.Offer{}, err
	}

	k, err := catalog.ParseKind(kind)
	if err != nil {
		return catalog.Offer{}, fmt.Errorf("offer %s: %w", o.ID, err)
	}
	o.Kind = k
	o.Provider = provider.String
	o.Origin = origin.String
	o.Destination = dest.String
	o.Location = locate.String
	o.Available = available != 0

	if o.Date, err = catalog.ParseDate(date); err != nil {
		return catalog.Offer{}, fmt.Errorf("offer %s: %w", o.ID, err)
	}
	if o.Until, err = catalog.ParseDate(until); err != nil {
		return catalog.Offer{}, fmt.Errorf("offer %s: %w", o.ID, err)
	}
	return o, nil
}

// foldKey maps every rune to the smallest member of its case-folding orbit,
// so two strings have equal keys exactly when strings.EqualFold holds.
// SQLite's NOCASE only folds ASCII.
func foldKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		lowest := r
		for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
			if f < lowest {
				lowest = f
			}
		}
		b.WriteRune(lowest)
	}
	return b.String()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(catalog.DateLayout)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
