package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pedido-service/models"
)

const (
	selectProducts = `SELECT producto_id, nombre, valor, description, marca, medida, image_name
	                  FROM productos ORDER BY producto_id`
	selectProduct = `SELECT producto_id, nombre, valor, description, marca, medida, image_name
	                 FROM productos WHERE producto_id = ?`
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) ListProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := r.db.QueryContext(ctx, selectProducts)
	if err != nil {
		return nil, queryFailed("failed to query products", err)
	}
	defer rows.Close()

	products := make([]models.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, queryFailed("failed to scan product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed("row iteration error", err)
	}
	return products, nil
}

func (r *ProductRepository) GetProduct(ctx context.Context, id int64) (models.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, selectProduct, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Product{}, fmt.Errorf("product %d: %w", id, models.ErrProductNotFound)
	}
	if err != nil {
		return models.Product{}, queryFailed("failed to query product", err)
	}
	return p, nil
}

func scanProduct(row rowScanner) (models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Description, &p.Brand, &p.QuantityDetails, &p.ImageName)
	return p, err
}
