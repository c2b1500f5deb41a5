package sql

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/chankeeper/chankeeper/internal/database"
	customerrors "github.com/chankeeper/chankeeper/internal/domain/errors"
	"github.com/chankeeper/chankeeper/internal/domain/models"
)

const tellColumns = "id, sender, recipient, body, queued_at, delivered_at, delivered, notified"

type TellRepository struct {
	db *database.PostgresDB
	sq sq.StatementBuilderType
}

func NewTellRepository(db *database.PostgresDB) *TellRepository {
	return &TellRepository{
		db: db,
		sq: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *TellRepository) Add(ctx context.Context, msg *models.TellMessage) error {
	query, args, err := r.sq.Insert("tells").
		Columns("id", "sender", "recipient", "body", "queued_at", "delivered_at", "delivered", "notified").
		Values(msg.ID, msg.From, msg.To, msg.Body, msg.QueuedAt, msg.DeliveredAt, msg.Delivered, msg.Notified).
		ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "inserting tell", Cause: err}
	}

	if _, err := r.db.Pool.Exec(ctx, query, args...); err != nil {
		return &customerrors.ErrSQLExecution{Operation: "inserting tell", Cause: err}
	}

	return nil
}

func (r *TellRepository) Update(ctx context.Context, msg *models.TellMessage) error {
	query, args, err := r.sq.Update("tells").
		Set("sender", msg.From).
		Set("recipient", msg.To).
		Set("body", msg.Body).
		Set("queued_at", msg.QueuedAt).
		Set("delivered_at", msg.DeliveredAt).
		Set("delivered", msg.Delivered).
		Set("notified", msg.Notified).
		Where(sq.Eq{"id": msg.ID}).
		ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "updating tell", Cause: err}
	}

	result, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "updating tell", Cause: err}
	}

	if result.RowsAffected() == 0 {
		return &customerrors.ErrTellNotFound{ID: msg.ID}
	}

	return nil
}

func (r *TellRepository) Remove(ctx context.Context, id int64) error {
	query, args, err := r.sq.Delete("tells").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return &customerrors.ErrBuildSQLQuery{Operation: "deleting tell", Cause: err}
	}

	result, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return &customerrors.ErrSQLExecution{Operation: "deleting tell", Cause: err}
	}

	if result.RowsAffected() == 0 {
		return &customerrors.ErrTellNotFound{ID: id}
	}

	return nil
}

func (r *TellRepository) GetAll(ctx context.Context) ([]*models.TellMessage, error) {
	query, args, err := r.sq.Select(tellColumns).
		From("tells").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, &customerrors.ErrBuildSQLQuery{Operation: "listing tells", Cause: err}
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []*models.TellMessage{}, nil
		}

		return nil, &customerrors.ErrSQLExecution{Operation: "listing tells", Cause: err}
	}
	defer rows.Close()

	var tells []*models.TellMessage

	for rows.Next() {
		var msg models.TellMessage

		err := rows.Scan(
			&msg.ID,
			&msg.From,
			&msg.To,
			&msg.Body,
			&msg.QueuedAt,
			&msg.DeliveredAt,
			&msg.Delivered,
			&msg.Notified,
		)
		if err != nil {
			return nil, &customerrors.ErrSQLScan{Entity: "tell", Cause: err}
		}

		tells = append(tells, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, &customerrors.ErrSQLExecution{Operation: "listing tells", Cause: err}
	}

	return tells, nil
}

func (r *TellRepository) Count(ctx context.Context) (int, error) {
	query, args, err := r.sq.Select("COUNT(*)").
		From("tells").
		ToSql()
	if err != nil {
		return 0, &customerrors.ErrBuildSQLQuery{Operation: "counting tells", Cause: err}
	}

	var count int
	if err := r.db.Pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, &customerrors.ErrSQLExecution{Operation: "counting tells", Cause: err}
	}

	return count, nil
}
