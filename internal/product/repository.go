package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"warehouse-api/internal/db"
)

type Repository interface {
	Create(ctx context.Context, in Input) (*Product, error)
	GetAll(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	Update(ctx context.Context, id int64, in Input) (*Product, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, in Input) (*Product, error) {
	p := &Product{}
	in.apply(p)

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `
			INSERT INTO products (name, description, price, quantity)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, p.Name, p.Description, p.Price, p.Quantity).Scan(&p.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return p, nil
}

func (r *repository) GetAll(ctx context.Context) ([]Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, price, quantity
		FROM products
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, price, quantity
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Quantity)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}

	return &p, nil
}

func (r *repository) Update(ctx context.Context, id int64, in Input) (*Product, error) {
	p := &Product{ID: id}
	in.apply(p)

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET name = $1, description = $2, price = $3, quantity = $4
			WHERE id = $5
		`, p.Name, p.Description, p.Price, p.Quantity, id)
		if err != nil {
			return err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrProductNotFound
		}
		return nil
	})
	if errors.Is(err, ErrProductNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", id, err)
	}

	return p, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrProductNotFound
		}
		return nil
	})

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrProductNotFound):
		return ErrProductNotFound
	case db.IsForeignKeyViolation(err):
		return ErrProductInUse
	default:
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}
}
