package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	pgUniqueCode = "23505"

	insertAttempts = 3
)

// PostgresStore keeps items in an append-only table. Because rows are never
// updated or deleted, (count, max id) is a valid change signal.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS items (
				seq      BIGSERIAL PRIMARY KEY,
				id       BIGINT UNIQUE NOT NULL,
				name     TEXT NOT NULL,
				category TEXT NOT NULL,
				price    DOUBLE PRECISION NOT NULL DEFAULT 0
			)
		`)
		if err != nil {
			return storageErr("ensure schema", "items", err)
		}
		return nil
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresStore) ReadAll(ctx context.Context) ([]Item, error) {
	var out []Item

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, name, category, price
			FROM items
			ORDER BY seq ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Item, 0, 16)
		for rows.Next() {
			var it Item
			if err := rows.Scan(&it.ID, &it.Name, &it.Category, &it.Price); err != nil {
				return err
			}
			out = append(out, it)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, storageErr("read", "items", err)
	}
	return out, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (Item, bool, error) {
	var it Item

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			SELECT id, name, category, price
			FROM items
			WHERE id = $1
		`, id).Scan(&it.ID, &it.Name, &it.Category, &it.Price)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, storageErr("read", "items", err)
	}
	return it, true, nil
}

func (s *PostgresStore) Append(ctx context.Context, n NewItem) (Item, error) {
	if err := n.Validate(); err != nil {
		return Item{}, err
	}

	it := Item{
		ID:       s.now().UnixMilli(),
		Name:     n.Name,
		Category: n.Category,
		Price:    n.Price,
	}

	var err error
	for attempt := 0; attempt < insertAttempts; attempt++ {
		err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
			_, err := s.db.ExecContext(ctx, `
				INSERT INTO items (id, name, category, price)
				VALUES ($1, $2, $3, $4)
			`, it.ID, it.Name, it.Category, it.Price)
			return err
		})
		if err == nil {
			return it, nil
		}
		if !isUniqueViolation(err) {
			break
		}
		it.ID++
	}
	return Item{}, storageErr("write", "items", err)
}

func (s *PostgresStore) CurrentSignal(ctx context.Context) (Signal, error) {
	var sig Signal

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(seq), 0), COUNT(*)
			FROM items
		`).Scan(&sig.ModTime, &sig.Size)
	})
	if err != nil {
		return Signal{}, storageErr("signal", "items", err)
	}
	return sig, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueCode
}
