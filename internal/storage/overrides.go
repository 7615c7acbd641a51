package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"addebiti/internal/core"
)

const overridesTable = "payment_overrides"

// OverrideTable implements store.OverrideStore. NULL columns map to nil
// override fields.
type OverrideTable struct {
	repo *SQLiteRepository
}

func (t *OverrideTable) Get(ctx context.Context, date string) (*core.PaymentOverride, error) {
	var (
		o      core.PaymentOverride
		name   sql.NullString
		amount sql.NullFloat64
		day    sql.NullInt64
	)
	err := t.repo.sb.
		Select("service_id", "service_name", "amount", "withdrawal_date").
		From(overridesTable).
		Where(squirrel.Eq{"date": date}).
		QueryRowContext(ctx).
		Scan(&o.ServiceID, &name, &amount, &day)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get override %s: %w", date, err)
	}

	if name.Valid {
		o.ServiceName = &name.String
	}
	if amount.Valid {
		o.Amount = &amount.Float64
	}
	if day.Valid {
		d := int(day.Int64)
		o.WithdrawalDate = &d
	}
	return &o, nil
}

func (t *OverrideTable) Set(ctx context.Context, date string, o core.PaymentOverride) error {
	_, err := t.repo.sb.
		Insert(overridesTable).
		Columns("date", "service_id", "service_name", "amount", "withdrawal_date").
		Values(date, o.ServiceID, nullable(o.ServiceName), nullable(o.Amount), nullable(o.WithdrawalDate)).
		Suffix(`ON CONFLICT(date) DO UPDATE SET
			service_id = excluded.service_id,
			service_name = excluded.service_name,
			amount = excluded.amount,
			withdrawal_date = excluded.withdrawal_date`).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("set override %s: %w", date, err)
	}
	return nil
}

func (t *OverrideTable) KeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	rows, err := t.repo.sb.
		Select("date").
		From(overridesTable).
		Where("substr(date, 1, ?) = ?", len(prefix), prefix).
		OrderBy("date").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list override keys %s: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan override key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (t *OverrideTable) Ping(ctx context.Context) error {
	return t.repo.Ping(ctx)
}

func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}
