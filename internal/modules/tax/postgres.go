package tax

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) GetOrCreate(ctx context.Context, taxType TaxType, rate decimal.Decimal) (*SalesTax, error) {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO sales_taxes (tax_type, tax_rate)
		VALUES ($1, $2)
		ON CONFLICT (tax_type) DO NOTHING`,
		taxType, rate.String()); err != nil {
		return nil, err
	}

	st := &SalesTax{}
	var rateStr string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tax_type, tax_rate::text, created_at
		FROM sales_taxes WHERE tax_type=$1`, taxType).
		Scan(&st.ID, &st.TaxType, &rateStr, &st.CreatedAt)
	if err != nil {
		return nil, err
	}
	if st.TaxRate, err = decimal.NewFromString(rateStr); err != nil {
		return nil, err
	}
	return st, nil
}
