package product

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productColumns = []string{"id", "name", "description", "price", "quantity"}

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db), mock
}

func TestRepository_Create(t *testing.T) {
	ctx := context.Background()
	input := Input{Name: "Table", Description: "Wooden table", Price: 200.0, Quantity: 10}

	t.Run("Success", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO products \(name, description, price, quantity\)`).
			WithArgs("Table", "Wooden table", 200.0, 10).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectCommit()

		p, err := repo.Create(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, &Product{ID: 1, Name: "Table", Description: "Wooden table", Price: 200.0, Quantity: 10}, p)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InsertError", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO products`).WillReturnError(errors.New("db error"))
		mock.ExpectRollback()

		_, err := repo.Create(ctx, input)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create product")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_GetAll(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		rows := sqlmock.NewRows(productColumns).
			AddRow(1, "Table", "Wooden table", 200.0, 10).
			AddRow(2, "Chair", "Comfortable chair", 50.0, 30)
		mock.ExpectQuery(`(?s)SELECT id, name, description, price, quantity\s+FROM products\s+ORDER BY id`).
			WillReturnRows(rows)

		products, err := repo.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, products, 2)
		assert.Equal(t, "Chair", products[1].Name)
		assert.Equal(t, 30, products[1].Quantity)
	})

	t.Run("Empty", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(`SELECT .* FROM products`).WillReturnRows(sqlmock.NewRows(productColumns))

		products, err := repo.GetAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, products)
		assert.Empty(t, products)
	})

	t.Run("QueryError", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(`SELECT .* FROM products`).WillReturnError(errors.New("db error"))

		_, err := repo.GetAll(ctx)
		assert.Error(t, err)
	})

	t.Run("ScanError", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(`SELECT .* FROM products`).
			WillReturnRows(sqlmock.NewRows(productColumns).AddRow("x", "Table", "", 1.0, 1))

		_, err := repo.GetAll(ctx)
		assert.Error(t, err)
	})
}

func TestRepository_GetByID(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(`(?s)SELECT .* FROM products\s+WHERE id = \$1`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows(productColumns).AddRow(3, "Lamp", "LED lamp", 25.0, 100))

		p, err := repo.GetByID(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, "Lamp", p.Name)
		assert.Equal(t, 100, p.Quantity)
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(`SELECT .* FROM products`).
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(ctx, 99)
		assert.Equal(t, ErrProductNotFound, err)
	})

	t.Run("DBError", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(`SELECT .* FROM products`).WillReturnError(errors.New("db error"))

		_, err := repo.GetByID(ctx, 1)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrProductNotFound)
	})
}

func TestRepository_Update(t *testing.T) {
	ctx := context.Background()
	input := Input{Name: "Sofa XL", Description: "Large leather sofa", Price: 600.0, Quantity: 3}

	t.Run("Success", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectExec(`(?s)UPDATE products\s+SET name = \$1, description = \$2, price = \$3, quantity = \$4\s+WHERE id = \$5`).
			WithArgs("Sofa XL", "Large leather sofa", 600.0, 3, int64(4)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		p, err := repo.Update(ctx, 4, input)
		require.NoError(t, err)
		assert.Equal(t, &Product{ID: 4, Name: "Sofa XL", Description: "Large leather sofa", Price: 600.0, Quantity: 3}, p)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE products`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := repo.Update(ctx, 404, input)
		assert.Equal(t, ErrProductNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DBError", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE products`).WillReturnError(errors.New("db error"))
		mock.ExpectRollback()

		_, err := repo.Update(ctx, 4, input)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrProductNotFound)
	})
}

func TestRepository_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM products WHERE id = \$1`).
			WithArgs(int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.Delete(ctx, 5))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM products`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		assert.Equal(t, ErrProductNotFound, repo.Delete(ctx, 5))
	})

	t.Run("ReferencedByOrders", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM products`).WillReturnError(&pq.Error{Code: "23503"})
		mock.ExpectRollback()

		assert.Equal(t, ErrProductInUse, repo.Delete(ctx, 5))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DBError", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM products`).WillReturnError(errors.New("db error"))
		mock.ExpectRollback()

		err := repo.Delete(ctx, 5)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to delete product 5")
	})
}
