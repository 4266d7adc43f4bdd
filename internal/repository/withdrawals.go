package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/marketplace-sellers/internal/model"
)

const withdrawalColumns = `id, seller_id, amount, status,
	bank_name, account_holder, account_number, routing_code,
	requested_at, completed_at, notes`

func scanWithdrawal(row pgx.Row) (*model.Withdrawal, error) {
	var (
		w      model.Withdrawal
		status string
	)
	err := row.Scan(&w.ID, &w.SellerID, &w.Amount, &status,
		&w.Bank.BankName, &w.Bank.AccountHolder, &w.Bank.AccountNumber, &w.Bank.RoutingCode,
		&w.RequestedAt, &w.CompletedAt, &w.Notes)
	if err != nil {
		return nil, err
	}
	w.Status = model.WithdrawalStatus(status)
	return &w, nil
}

// GetWithdrawals возвращает заявки продавца на вывод, начиная с последних.
func (r *PostgresRepository) GetWithdrawals(ctx context.Context, sellerID string) ([]model.Withdrawal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals
		 WHERE seller_id = $1
		 ORDER BY requested_at DESC`,
		sellerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select withdrawals: %w", err)
	}
	defer rows.Close()

	var withdrawals []model.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, *w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return withdrawals, nil
}

// CreateWithdrawal создаёт заявку на вывод с текущими реквизитами продавца.
// Строка продавца блокируется на время проверки остатка, поэтому параллельные заявки
// не могут в сумме превысить начисления.
func (r *PostgresRepository) CreateWithdrawal(ctx context.Context, sellerID string, amount int64) (*model.Withdrawal, error) {
	var created *model.Withdrawal

	err := r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() {
			_ = tx.Rollback(ctx)
		}()

		var (
			earnings int64
			bank     model.BankDetails
		)
		err = tx.QueryRow(ctx,
			`SELECT total_earnings, bank_name, account_holder, account_number, routing_code
			 FROM sellers WHERE id = $1 FOR UPDATE`,
			sellerID,
		).Scan(&earnings, &bank.BankName, &bank.AccountHolder, &bank.AccountNumber, &bank.RoutingCode)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrSellerNotFound
			}
			return fmt.Errorf("lock seller: %w", err)
		}

		var withdrawn int64
		err = tx.QueryRow(ctx,
			`SELECT COALESCE(SUM(amount), 0) FROM withdrawals WHERE seller_id = $1`,
			sellerID,
		).Scan(&withdrawn)
		if err != nil {
			return fmt.Errorf("sum withdrawals: %w", err)
		}

		if earnings-withdrawn < amount {
			return ErrInsufficientBalance
		}

		w, err := scanWithdrawal(tx.QueryRow(ctx,
			`INSERT INTO withdrawals (seller_id, amount, status,
				bank_name, account_holder, account_number, routing_code)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING `+withdrawalColumns,
			sellerID, amount, string(model.WithdrawalStatusPending),
			bank.BankName, bank.AccountHolder, bank.AccountNumber, bank.RoutingCode,
		))
		if err != nil {
			return fmt.Errorf("insert withdrawal: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}

		created = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}
