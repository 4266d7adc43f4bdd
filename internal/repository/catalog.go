package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/marketplace-sellers/internal/model"
)

const productColumns = `id, seller_id, name, description, price, stock, category, images,
	is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (*model.Product, error) {
	var p model.Product
	err := row.Scan(&p.ID, &p.SellerID, &p.Name, &p.Description, &p.Price, &p.Stock,
		&p.Category, &p.Images, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	return &p, nil
}

// CreateProduct сохраняет товар и увеличивает счётчик товаров продавца.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p *model.Product) error {
	if p.Images == nil {
		p.Images = []string{}
	}

	return r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() {
			_ = tx.Rollback(ctx)
		}()

		err = tx.QueryRow(ctx,
			`INSERT INTO products (seller_id, name, description, price, stock, category, images, is_active)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id, created_at, updated_at`,
			p.SellerID, p.Name, p.Description, p.Price, p.Stock, p.Category, p.Images, p.IsActive,
		).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert product: %w", err)
		}

		tag, err := tx.Exec(ctx,
			`UPDATE sellers SET total_products = total_products + 1, updated_at = NOW() WHERE id = $1`,
			p.SellerID,
		)
		if err != nil {
			return fmt.Errorf("update seller products: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrSellerNotFound
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
}

// GetProduct возвращает товар по идентификатору.
func (r *PostgresRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrProductNotFound) {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, err
}

// ListProducts возвращает страницу товаров продавца и их общее количество.
func (r *PostgresRepository) ListProducts(ctx context.Context, sellerID string, page model.Page) ([]model.Product, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE seller_id = $1`, sellerID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE seller_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		sellerID, page.Limit, page.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return products, total, nil
}

// UpdateProduct обновляет переданные поля товара.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, id int64, upd model.ProductUpdate) (*model.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx,
		`UPDATE products
		 SET name = COALESCE($2, name),
		     description = COALESCE($3, description),
		     price = COALESCE($4, price),
		     stock = COALESCE($5, stock),
		     category = COALESCE($6, category),
		     images = COALESCE($7, images),
		     is_active = COALESCE($8, is_active),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+productColumns,
		id, upd.Name, upd.Description, upd.Price, upd.Stock, upd.Category, upd.Images, upd.IsActive,
	))
	if err != nil && !errors.Is(err, ErrProductNotFound) {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return p, err
}

// DeleteProduct удаляет товар продавца и уменьшает счётчик товаров, не опуская его ниже нуля.
func (r *PostgresRepository) DeleteProduct(ctx context.Context, id int64, sellerID string) error {
	return r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() {
			_ = tx.Rollback(ctx)
		}()

		tag, err := tx.Exec(ctx,
			`DELETE FROM products WHERE id = $1 AND seller_id = $2`, id, sellerID)
		if err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrProductNotFound
		}

		_, err = tx.Exec(ctx,
			`UPDATE sellers SET total_products = GREATEST(total_products - 1, 0), updated_at = NOW()
			 WHERE id = $1`,
			sellerID,
		)
		if err != nil {
			return fmt.Errorf("update seller products: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
}

const orderColumns = `id, seller_id, customer_name, customer_email, shipping_address, items,
	total_amount, status, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o      model.Order
		items  []byte
		status string
	)
	err := row.Scan(&o.ID, &o.SellerID, &o.CustomerName, &o.CustomerEmail, &o.ShippingAddress,
		&items, &o.TotalAmount, &status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	o.Status = model.OrderStatus(status)
	return &o, nil
}

// ListOrders возвращает страницу заказов продавца, при необходимости отфильтрованных по статусу.
func (r *PostgresRepository) ListOrders(ctx context.Context, sellerID string, status model.OrderStatus, page model.Page) ([]model.Order, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE seller_id = $1 AND ($2::text = '' OR status = $2)`,
		sellerID, string(status),
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE seller_id = $1 AND ($2::text = '' OR status = $2)
		 ORDER BY created_at DESC
		 LIMIT $3 OFFSET $4`,
		sellerID, string(status), page.Limit, page.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return orders, total, nil
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrOrderNotFound) {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, err
}

// UpdateOrderStatus меняет статус заказа. Доставленные и отменённые заказы не меняются.
// Первый переход в delivered начисляет сумму заказа продавцу в той же транзакции.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) (*model.Order, error) {
	var updated *model.Order

	err := r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() {
			_ = tx.Rollback(ctx)
		}()

		current, err := scanOrder(tx.QueryRow(ctx,
			`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				return err
			}
			return fmt.Errorf("lock order: %w", err)
		}

		if current.Status.Terminal() {
			return ErrOrderFinalized
		}

		o, err := scanOrder(tx.QueryRow(ctx,
			`UPDATE orders SET status = $2, updated_at = NOW()
			 WHERE id = $1
			 RETURNING `+orderColumns,
			id, string(status),
		))
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}

		if status == model.OrderStatusDelivered {
			_, err = tx.Exec(ctx,
				`UPDATE sellers
				 SET total_earnings = total_earnings + $2, total_orders = total_orders + 1, updated_at = NOW()
				 WHERE id = $1`,
				o.SellerID, o.TotalAmount,
			)
			if err != nil {
				return fmt.Errorf("credit seller: %w", err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}

		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}
