package sales

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/georgemunganga/printa-pos/internal/apperr"
	"github.com/georgemunganga/printa-pos/internal/modules/tax"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

const selectTransaction = `
	SELECT id, business_entity_id, tax_type, tax_rate::text, subtotal::text, tax_amount::text,
	       total::text, status, payment_intent_id, payment_id, payment_event_date,
	       transaction_date, updated_at, version
	FROM sales_transactions`

func (r *postgresRepo) Create(ctx context.Context, t *SalesTransaction) error {
	id := t.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := time.Now()
	txDate := t.TransactionDate
	if txDate.IsZero() {
		txDate = now
	}

	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbtx.Rollback()

	_, err = dbtx.ExecContext(ctx, `
		INSERT INTO sales_transactions
		  (id, business_entity_id, tax_type, tax_rate, subtotal, tax_amount, total,
		   status, payment_intent_id, payment_id, payment_event_date, transaction_date, updated_at, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),$10,$11,$12,$13,1)`,
		id, t.BusinessEntityID, t.TaxType, t.TaxRate.String(), t.Subtotal.StringFixed(2),
		t.TaxAmount.StringFixed(2), t.Total.StringFixed(2), t.Status, t.PaymentIntentID,
		nullPaymentID(t.PaymentID), nullTime(t.PaymentEventDate), txDate, now)
	if err != nil {
		return fmt.Errorf("insert sales transaction: %w", err)
	}
	if err := insertDetails(ctx, dbtx, id, t); err != nil {
		return err
	}

	if err := dbtx.Commit(); err != nil {
		return err
	}
	t.ID = id
	t.TransactionDate = txDate
	t.UpdatedAt = now
	t.Version = 1
	return nil
}

func (r *postgresRepo) UpdateItems(ctx context.Context, t *SalesTransaction) error {
	now := time.Now()
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbtx.Rollback()

	res, err := dbtx.ExecContext(ctx, `
		UPDATE sales_transactions SET
		  tax_type=$3, tax_rate=$4, subtotal=$5, tax_amount=$6, total=$7,
		  version=version+1, updated_at=$8
		WHERE id=$1 AND version=$2`,
		t.ID, t.Version, t.TaxType, t.TaxRate.String(), t.Subtotal.StringFixed(2),
		t.TaxAmount.StringFixed(2), t.Total.StringFixed(2), now)
	if err != nil {
		return fmt.Errorf("update sales transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return r.missingOr(ctx, t.ID, apperr.New(apperr.CodeConflict, "sales transaction %s was modified concurrently", t.ID))
	}

	if _, err := dbtx.ExecContext(ctx, `DELETE FROM sales_details WHERE transaction_id=$1`, t.ID); err != nil {
		return fmt.Errorf("clear sales details: %w", err)
	}
	if err := insertDetails(ctx, dbtx, t.ID, t); err != nil {
		return err
	}

	if err := dbtx.Commit(); err != nil {
		return err
	}
	t.Version++
	t.UpdatedAt = now
	return nil
}

func (r *postgresRepo) AttachPayment(ctx context.Context, t *SalesTransaction) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sales_transactions SET
		  payment_intent_id=NULLIF($2,''),
		  payment_id=COALESCE(payment_id, $3),
		  payment_event_date=COALESCE(payment_event_date, $4),
		  updated_at=$5
		WHERE id=$1`,
		t.ID, t.PaymentIntentID, nullPaymentID(t.PaymentID), nullTime(t.PaymentEventDate), time.Now())
	if err != nil {
		return fmt.Errorf("attach payment: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return notFound(t.ID)
	}
	return nil
}

func (r *postgresRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sales_transactions SET status=$3, payment_event_date=$4, updated_at=$5
		WHERE id=$1 AND status=$2`,
		id, from, to, at, time.Now())
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return r.missingOr(ctx, id, statusConflict(id, from))
	}
	return nil
}

// missingOr returns NOT_FOUND when id has no row, otherwise conflict.
func (r *postgresRepo) missingOr(ctx context.Context, id uuid.UUID, conflict error) error {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM sales_transactions WHERE id=$1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return notFound(id)
	}
	return conflict
}

func insertDetails(ctx context.Context, dbtx *sql.Tx, id uuid.UUID, t *SalesTransaction) error {
	for _, it := range t.SortedItems() {
		if _, err := dbtx.ExecContext(ctx, `
			INSERT INTO sales_details (transaction_id, product_id, quantity, unit_price)
			VALUES ($1,$2,$3,$4)`,
			id, it.ProductID, it.Quantity, priceString(it.UnitPrice)); err != nil {
			return fmt.Errorf("save sales detail %d: %w", it.ProductID, err)
		}
	}
	return nil
}

func nullPaymentID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (r *postgresRepo) FindByID(ctx context.Context, id uuid.UUID) (*SalesTransaction, error) {
	t, err := r.scan(r.db.QueryRowContext(ctx, selectTransaction+` WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, err
	}
	return t, r.loadItems(ctx, t)
}

func (r *postgresRepo) FindByPaymentID(ctx context.Context, paymentID int64) (*SalesTransaction, error) {
	t, err := r.scan(r.db.QueryRowContext(ctx,
		selectTransaction+` WHERE payment_id=$1 ORDER BY updated_at DESC LIMIT 1`, paymentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.CodeNotFound, "no sales transaction for payment %d", paymentID)
	}
	if err != nil {
		return nil, err
	}
	return t, r.loadItems(ctx, t)
}

func (r *postgresRepo) loadItems(ctx context.Context, t *SalesTransaction) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, quantity, unit_price::text
		FROM sales_details WHERE transaction_id=$1`, t.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	t.Items = make(map[int64]LineItem)
	for rows.Next() {
		var it LineItem
		var price string
		if err := rows.Scan(&it.ProductID, &it.Quantity, &price); err != nil {
			return err
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return err
		}
		t.Items[it.ProductID] = it
	}
	return rows.Err()
}

// ── scanner ───────────────────────────────────────────────────────────────────

type rowScanner interface{ Scan(dest ...interface{}) error }

func (r *postgresRepo) scan(row rowScanner) (*SalesTransaction, error) {
	t := &SalesTransaction{}
	var taxType string
	var rate, subtotal, taxAmount, total string
	var intentID sql.NullString
	var paymentID sql.NullInt64
	var eventDate sql.NullTime
	err := row.Scan(&t.ID, &t.BusinessEntityID, &taxType, &rate, &subtotal, &taxAmount,
		&total, &t.Status, &intentID, &paymentID, &eventDate,
		&t.TransactionDate, &t.UpdatedAt, &t.Version)
	if err != nil {
		return nil, err
	}
	t.TaxType = tax.TaxType(taxType)
	for _, a := range []struct {
		dst *decimal.Decimal
		src string
	}{{&t.TaxRate, rate}, {&t.Subtotal, subtotal}, {&t.TaxAmount, taxAmount}, {&t.Total, total}} {
		if *a.dst, err = decimal.NewFromString(a.src); err != nil {
			return nil, err
		}
	}
	if intentID.Valid {
		t.PaymentIntentID = intentID.String
	}
	if paymentID.Valid {
		id := paymentID.Int64
		t.PaymentID = &id
	}
	if eventDate.Valid {
		d := eventDate.Time
		t.PaymentEventDate = &d
	}
	return t, nil
}
