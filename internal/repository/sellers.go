package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/marketplace-sellers/internal/model"
)

const sellerColumns = `id, name, email, phone, password_hash, national_id, id_document,
	bank_name, account_holder, account_number, routing_code,
	store_name, store_description, address,
	status, is_approved, is_email_verified, approved_at, COALESCE(rejection_reason, ''),
	COALESCE(otp_code, ''), otp_expires_at, otp_attempts,
	total_earnings, total_orders, total_products, created_at, updated_at`

func scanSeller(row pgx.Row) (*model.Seller, error) {
	var (
		s      model.Seller
		status string
	)

	err := row.Scan(
		&s.ID, &s.Name, &s.Email, &s.Phone, &s.PasswordHash, &s.NationalID, &s.IDDocument,
		&s.Bank.BankName, &s.Bank.AccountHolder, &s.Bank.AccountNumber, &s.Bank.RoutingCode,
		&s.StoreName, &s.StoreDescription, &s.Address,
		&status, &s.IsApproved, &s.IsEmailVerified, &s.ApprovedAt, &s.RejectionReason,
		&s.OTP.Code, &s.OTP.ExpiresAt, &s.OTP.Attempts,
		&s.TotalEarnings, &s.TotalOrders, &s.TotalProducts, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSellerNotFound
		}
		return nil, err
	}

	s.Status = model.SellerStatus(status)
	return &s, nil
}

// CreateSeller сохраняет нового продавца. Нарушение уникальности почты или номера удостоверения
// возвращается как ErrDuplicateEmail или ErrDuplicateNationalID.
func (r *PostgresRepository) CreateSeller(ctx context.Context, s *model.Seller) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO sellers (
			id, name, email, phone, password_hash, national_id, id_document,
			bank_name, account_holder, account_number, routing_code,
			store_name, store_description, address,
			status, is_approved, is_email_verified
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.Email, s.Phone, s.PasswordHash, s.NationalID, s.IDDocument,
		s.Bank.BankName, s.Bank.AccountHolder, s.Bank.AccountNumber, s.Bank.RoutingCode,
		s.StoreName, s.StoreDescription, s.Address,
		string(s.Status), s.IsApproved, s.IsEmailVerified,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			switch constraint {
			case "sellers_email_key":
				return fmt.Errorf("%w: %s", ErrDuplicateEmail, s.Email)
			case "sellers_national_id_key":
				return ErrDuplicateNationalID
			}
		}
		return fmt.Errorf("create seller: %w", err)
	}
	return nil
}

// SellerExists сообщает, заняты ли почта и номер удостоверения.
func (r *PostgresRepository) SellerExists(ctx context.Context, email, nationalID string) (bool, bool, error) {
	var emailTaken, nationalIDTaken bool
	err := r.pool.QueryRow(ctx,
		`SELECT
			EXISTS (SELECT 1 FROM sellers WHERE email = $1),
			EXISTS (SELECT 1 FROM sellers WHERE national_id = $2)`,
		email, nationalID,
	).Scan(&emailTaken, &nationalIDTaken)
	if err != nil {
		return false, false, fmt.Errorf("check seller uniqueness: %w", err)
	}
	return emailTaken, nationalIDTaken, nil
}

// GetSellerByID возвращает продавца по идентификатору.
func (r *PostgresRepository) GetSellerByID(ctx context.Context, id string) (*model.Seller, error) {
	s, err := scanSeller(r.pool.QueryRow(ctx,
		`SELECT `+sellerColumns+` FROM sellers WHERE id = $1`, id))
	if err != nil && !errors.Is(err, ErrSellerNotFound) {
		return nil, fmt.Errorf("get seller: %w", err)
	}
	return s, err
}

// GetSellerByEmail возвращает продавца по адресу почты.
func (r *PostgresRepository) GetSellerByEmail(ctx context.Context, email string) (*model.Seller, error) {
	s, err := scanSeller(r.pool.QueryRow(ctx,
		`SELECT `+sellerColumns+` FROM sellers WHERE email = $1`, email))
	if err != nil && !errors.Is(err, ErrSellerNotFound) {
		return nil, fmt.Errorf("get seller by email: %w", err)
	}
	return s, err
}

// SetSellerOTP сохраняет новый код подтверждения, заменяя предыдущий и обнуляя счётчик попыток.
func (r *PostgresRepository) SetSellerOTP(ctx context.Context, id, code string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sellers
		 SET otp_code = $2, otp_expires_at = $3, otp_attempts = 0, updated_at = NOW()
		 WHERE id = $1`,
		id, code, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("set seller otp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSellerNotFound
	}
	return nil
}

// IncrementOTPAttempts увеличивает счётчик неудачных проверок и возвращает новое значение.
func (r *PostgresRepository) IncrementOTPAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.pool.QueryRow(ctx,
		`UPDATE sellers SET otp_attempts = otp_attempts + 1, updated_at = NOW()
		 WHERE id = $1 RETURNING otp_attempts`,
		id,
	).Scan(&attempts)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrSellerNotFound
		}
		return 0, fmt.Errorf("increment otp attempts: %w", err)
	}
	return attempts, nil
}

// MarkEmailVerified отмечает почту подтверждённой и удаляет код.
func (r *PostgresRepository) MarkEmailVerified(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sellers
		 SET is_email_verified = TRUE, otp_code = NULL, otp_expires_at = NULL, otp_attempts = 0,
		     updated_at = NOW()
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSellerNotFound
	}
	return nil
}

// UpdateSellerStatus применяет смену статуса и возвращает обновлённого продавца.
// Признак одобрения всегда выводится из статуса.
func (r *PostgresRepository) UpdateSellerStatus(ctx context.Context, id string, change model.StatusChange) (*model.Seller, error) {
	keepReason := change.RejectionReason == nil
	reason := ""
	if !keepReason {
		reason = *change.RejectionReason
	}

	s, err := scanSeller(r.pool.QueryRow(ctx,
		`UPDATE sellers
		 SET status = $2,
		     is_approved = $3,
		     approved_at = COALESCE($4, approved_at),
		     rejection_reason = CASE WHEN $5 THEN rejection_reason ELSE NULLIF($6, '') END,
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+sellerColumns,
		id, string(change.Status), change.Status == model.SellerStatusApproved,
		change.ApprovedAt, keepReason, reason,
	))
	if err != nil && !errors.Is(err, ErrSellerNotFound) {
		return nil, fmt.Errorf("update seller status: %w", err)
	}
	return s, err
}

// UpdateSellerProfile обновляет переданные поля профиля.
func (r *PostgresRepository) UpdateSellerProfile(ctx context.Context, id string, upd model.ProfileUpdate) (*model.Seller, error) {
	var bankName, holder, number, routing *string
	if upd.Bank != nil {
		bankName, holder, number, routing = &upd.Bank.BankName, &upd.Bank.AccountHolder,
			&upd.Bank.AccountNumber, &upd.Bank.RoutingCode
	}

	s, err := scanSeller(r.pool.QueryRow(ctx,
		`UPDATE sellers
		 SET name = COALESCE($2, name),
		     phone = COALESCE($3, phone),
		     store_name = COALESCE($4, store_name),
		     store_description = COALESCE($5, store_description),
		     address = COALESCE($6, address),
		     bank_name = COALESCE($7, bank_name),
		     account_holder = COALESCE($8, account_holder),
		     account_number = COALESCE($9, account_number),
		     routing_code = COALESCE($10, routing_code),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+sellerColumns,
		id, upd.Name, upd.Phone, upd.StoreName, upd.StoreDescription, upd.Address,
		bankName, holder, number, routing,
	))
	if err != nil && !errors.Is(err, ErrSellerNotFound) {
		return nil, fmt.Errorf("update seller profile: %w", err)
	}
	return s, err
}

// UpdateSellerPassword заменяет хеш пароля продавца.
func (r *PostgresRepository) UpdateSellerPassword(ctx context.Context, id string, hash []byte) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sellers SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		id, hash,
	)
	if err != nil {
		return fmt.Errorf("update seller password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSellerNotFound
	}
	return nil
}

// ListSellers возвращает страницу продавцов по фильтру и общее число подходящих записей.
func (r *PostgresRepository) ListSellers(ctx context.Context, f model.SellerFilter) ([]model.Seller, int, error) {
	var (
		conds []string
		args  []any
	)

	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}
	if f.Search != "" {
		args = append(args, likePattern(f.Search))
		n := "$" + strconv.Itoa(len(args))
		conds = append(conds, "(name ILIKE "+n+" OR email ILIKE "+n+" OR phone ILIKE "+n+")")
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sellers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sellers: %w", err)
	}

	page := model.Page{Page: f.Page, Limit: f.Limit}
	args = append(args, page.Limit, page.Offset())
	query := `SELECT ` + sellerColumns + ` FROM sellers` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select sellers: %w", err)
	}
	defer rows.Close()

	var sellers []model.Seller
	for rows.Next() {
		s, err := scanSeller(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan seller: %w", err)
		}
		sellers = append(sellers, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return sellers, total, nil
}

// GetSellerAnalytics собирает сводные показатели продавца.
func (r *PostgresRepository) GetSellerAnalytics(ctx context.Context, sellerID string) (*model.SellerAnalytics, error) {
	a := &model.SellerAnalytics{OrdersByStatus: map[model.OrderStatus]int64{}}

	err := r.pool.QueryRow(ctx,
		`SELECT s.total_earnings, s.total_orders, s.total_products,
		        (SELECT COUNT(*) FROM products p WHERE p.seller_id = s.id AND p.is_active),
		        (SELECT COALESCE(SUM(w.amount), 0) FROM withdrawals w WHERE w.seller_id = s.id),
		        (SELECT COALESCE(SUM(w.amount), 0) FROM withdrawals w
		          WHERE w.seller_id = s.id AND w.status = 'pending')
		 FROM sellers s WHERE s.id = $1`,
		sellerID,
	).Scan(&a.TotalEarnings, &a.TotalOrders, &a.TotalProducts, &a.ActiveProducts,
		&a.TotalWithdrawn, &a.PendingWithdrawals)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSellerNotFound
		}
		return nil, fmt.Errorf("select seller totals: %w", err)
	}
	a.AvailableBalance = a.TotalEarnings - a.TotalWithdrawn

	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM orders WHERE seller_id = $1 GROUP BY status`,
		sellerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan order status: %w", err)
		}
		a.OrdersByStatus[model.OrderStatus(status)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return a, nil
}
