package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shida/core/notification"
)

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

var notificationColumns = []string{"id", "user_id", "issue_id", "message", "type", "is_read", "created_at"}

type notificationRow struct {
	ID        string      `db:"id"`
	UserID    string      `db:"user_id"`
	IssueID   null.String `db:"issue_id"`
	Message   string      `db:"message"`
	Type      string      `db:"type"`
	IsRead    bool        `db:"is_read"`
	CreatedAt null.Time   `db:"created_at"`
}

func (r notificationRow) unpack() notification.Notification {
	return notification.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		IssueID:   r.IssueID.String,
		Message:   r.Message,
		Type:      r.Type,
		IsRead:    r.IsRead,
		CreatedAt: r.CreatedAt.Time,
	}
}

func (repo notificationRepository) CreateNotification(ctx context.Context, notif notification.Notification) (notification.Notification, error) {
	notif.ID = uuid.New().String()
	query, args, err := psql.Insert("notification").
		Columns(notificationColumns...).
		Values(notif.ID, notif.UserID,
			null.NewString(notif.IssueID, notif.IssueID != ""),
			notif.Message, notif.Type, notif.IsRead, notif.CreatedAt.UTC()).
		ToSql()
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "building notification insert")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return notif, nil
}

func (repo notificationRepository) QueryNotifications(ctx context.Context, userID string, filter *notification.QueryFilter) ([]notification.Notification, error) {
	q := psql.Select(notificationColumns...).From("notification").Where(sq.Eq{"user_id": userID})
	if filter != nil {
		if filter.IsRead != nil {
			q = q.Where(sq.Eq{"is_read": *filter.IsRead})
		}
		if filter.Type != "" {
			q = q.Where(sq.Eq{"type": filter.Type})
		}
	}
	query, args, err := q.OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building notifications query")
	}
	var rows []notificationRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		notifs = append(notifs, row.unpack())
	}
	return notifs, nil
}

func (repo notificationRepository) GetNotification(ctx context.Context, id string) (notification.Notification, error) {
	query, args, err := psql.Select(notificationColumns...).From("notification").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "building notification query")
	}
	var row notificationRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return notification.Notification{}, notification.ErrNotFound
		}
		return notification.Notification{}, errors.Wrap(err, "getting notification")
	}
	return row.unpack(), nil
}

func (repo notificationRepository) MarkNotificationRead(ctx context.Context, id string) (notification.Notification, error) {
	query, args, err := psql.Update("notification").
		Set("is_read", true).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "building notification update")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "marking notification read")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notification.Notification{}, notification.ErrNotFound
	}
	return repo.GetNotification(ctx, id)
}

func (repo notificationRepository) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	query, args, err := psql.Update("notification").
		Set("is_read", true).
		Where(sq.Eq{"user_id": userID, "is_read": false}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building notifications update")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}
	return int(n), nil
}

func (repo notificationRepository) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From("notification").
		Where(sq.Eq{"user_id": userID, "is_read": false}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building unread count query")
	}
	var count int
	if err := repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, errors.Wrap(err, "counting unread notifications")
	}
	return count, nil
}
