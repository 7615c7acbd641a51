package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"addebiti/internal/core"
)

const servicesTable = "subscription_services"

// ServiceTable implements store.ServiceRegistry. Rows are listed by their
// autoincrement sequence, so replacing a service keeps its position.
type ServiceTable struct {
	repo *SQLiteRepository
}

func (t *ServiceTable) List(ctx context.Context) ([]core.SubscriptionService, error) {
	rows, err := t.repo.sb.
		Select("id", "service_name", "withdrawal_date", "amount").
		From(servicesTable).
		OrderBy("seq").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var out []core.SubscriptionService
	for rows.Next() {
		var s core.SubscriptionService
		if err := rows.Scan(&s.ID, &s.ServiceName, &s.WithdrawalDate, &s.Amount); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}
	return out, nil
}

func (t *ServiceTable) Get(ctx context.Context, id string) (*core.SubscriptionService, error) {
	var s core.SubscriptionService
	err := t.repo.sb.
		Select("id", "service_name", "withdrawal_date", "amount").
		From(servicesTable).
		Where(squirrel.Eq{"id": id}).
		QueryRowContext(ctx).
		Scan(&s.ID, &s.ServiceName, &s.WithdrawalDate, &s.Amount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get service %s: %w", id, err)
	}
	return &s, nil
}

func (t *ServiceTable) Create(ctx context.Context, svc core.SubscriptionService) error {
	_, err := t.repo.sb.
		Insert(servicesTable).
		Columns("id", "service_name", "withdrawal_date", "amount").
		Values(svc.ID, svc.ServiceName, svc.WithdrawalDate, svc.Amount).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	return nil
}

func (t *ServiceTable) Put(ctx context.Context, svc core.SubscriptionService) (bool, error) {
	res, err := t.repo.sb.
		Update(servicesTable).
		Set("service_name", svc.ServiceName).
		Set("withdrawal_date", svc.WithdrawalDate).
		Set("amount", svc.Amount).
		Where(squirrel.Eq{"id": svc.ID}).
		ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("replace service %s: %w", svc.ID, err)
	}
	return affected(res)
}

func (t *ServiceTable) Patch(ctx context.Context, id string, patch core.ServicePatch) (bool, error) {
	update := t.repo.sb.Update(servicesTable).Where(squirrel.Eq{"id": id})

	var hasUpdates bool
	if patch.ServiceName != nil {
		update = update.Set("service_name", *patch.ServiceName)
		hasUpdates = true
	}
	if patch.Amount != nil {
		update = update.Set("amount", *patch.Amount)
		hasUpdates = true
	}
	if patch.WithdrawalDate != nil {
		update = update.Set("withdrawal_date", *patch.WithdrawalDate)
		hasUpdates = true
	}

	if !hasUpdates {
		svc, err := t.Get(ctx, id)
		return svc != nil, err
	}

	res, err := update.ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("patch service %s: %w", id, err)
	}
	return affected(res)
}

func (t *ServiceTable) Delete(ctx context.Context, id string) (bool, error) {
	res, err := t.repo.sb.
		Delete(servicesTable).
		Where(squirrel.Eq{"id": id}).
		ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("delete service %s: %w", id, err)
	}
	return affected(res)
}

func (t *ServiceTable) Ping(ctx context.Context) error {
	return t.repo.Ping(ctx)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
