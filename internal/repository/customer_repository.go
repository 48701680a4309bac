package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"go.nhat.io/clock"

	appErrors "github.com/unclebandit/customer-service/internal/errors"
	"github.com/unclebandit/customer-service/internal/model"
)

// CustomerRepositoryInterface defines methods used by service.
// Lookups return (nil, nil) when the customer does not exist.
type CustomerRepositoryInterface interface {
	Create(ctx context.Context, c *model.Customer) (*model.Customer, error)
	GetByID(ctx context.Context, id string) (*model.Customer, error)
	ListAll(ctx context.Context) iter.Seq2[*model.Customer, error]
	Update(ctx context.Context, c *model.Customer) (*model.Customer, error)
	Delete(ctx context.Context, id string) (*model.Customer, error)
	Ping(ctx context.Context) error
}

const customersTable = "customers"

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// CustomerRepository is the Postgres implementation.
type CustomerRepository struct {
	DB    *sql.DB
	Clock clock.Clock
}

func NewCustomerRepository(db *sql.DB, c clock.Clock) *CustomerRepository {
	if c == nil {
		c = clock.New()
	}
	return &CustomerRepository{DB: db, Clock: c}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row scanner) (*model.Customer, error) {
	var (
		c       model.Customer
		payload []byte
	)
	if err := row.Scan(&c.ID, &payload); err != nil {
		return nil, err
	}
	if err := c.SetPayloadJSON(payload); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts the customer and returns the stored row.
func (r *CustomerRepository) Create(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	payload, err := c.PayloadJSON()
	if err != nil {
		return nil, err
	}

	now := r.Clock.Now()
	query, args, err := psql.Insert(customersTable).
		Columns("id", "payload", "created_at", "updated_at").
		Values(c.ID, string(payload), now, now).
		Suffix("RETURNING id, payload").
		ToSql()
	if err != nil {
		return nil, err
	}

	saved, err := scanCustomer(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, appErrors.NewDuplicateCustomer(c.ID)
		}
		return nil, fmt.Errorf("insert customer: %w", err)
	}
	return saved, nil
}

// GetByID fetches a customer by ID
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*model.Customer, error) {
	query, args, err := psql.Select("id", "payload").
		From(customersTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}

	c, err := scanCustomer(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // not found
		}
		return nil, fmt.Errorf("select customer %s: %w", id, err)
	}
	return c, nil
}

// ListAll streams every customer in creation order. Rows are read lazily, so
// a consumer that stops early releases the cursor without draining it.
func (r *CustomerRepository) ListAll(ctx context.Context) iter.Seq2[*model.Customer, error] {
	return func(yield func(*model.Customer, error) bool) {
		query, args, err := psql.Select("id", "payload").
			From(customersTable).
			OrderBy("created_at", "id").
			ToSql()
		if err != nil {
			yield(nil, err)
			return
		}

		rows, err := r.DB.QueryContext(ctx, query, args...)
		if err != nil {
			yield(nil, fmt.Errorf("select customers: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanCustomer(rows)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(c, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("iterate customers: %w", err))
		}
	}
}

// Update replaces the payload of an existing customer.
func (r *CustomerRepository) Update(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	payload, err := c.PayloadJSON()
	if err != nil {
		return nil, err
	}

	query, args, err := psql.Update(customersTable).
		Set("payload", string(payload)).
		Set("updated_at", r.Clock.Now()).
		Where(squirrel.Eq{"id": c.ID}).
		Suffix("RETURNING id, payload").
		ToSql()
	if err != nil {
		return nil, err
	}

	updated, err := scanCustomer(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update customer %s: %w", c.ID, err)
	}
	return updated, nil
}

// Delete removes a customer and returns the removed row.
func (r *CustomerRepository) Delete(ctx context.Context, id string) (*model.Customer, error) {
	query, args, err := psql.Delete(customersTable).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING id, payload").
		ToSql()
	if err != nil {
		return nil, err
	}

	removed, err := scanCustomer(r.DB.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("delete customer %s: %w", id, err)
	}
	return removed, nil
}

func (r *CustomerRepository) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

var _ CustomerRepositoryInterface = (*CustomerRepository)(nil)
