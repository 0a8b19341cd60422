package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shida/core"
	"github.com/trezcool/shida/core/user"
)

const userTable = `"user"`

var userColumns = []string{
	"id", "name", "username", "email", "roles", "cohort",
	"is_active", "password_hash", "created_at", "updated_at", "last_login",
}

type userRow struct {
	ID           string         `db:"id"`
	Name         null.String    `db:"name"`
	Username     null.String    `db:"username"`
	Email        null.String    `db:"email"`
	Roles        pq.StringArray `db:"roles"`
	Cohort       string         `db:"cohort"`
	IsActive     null.Bool      `db:"is_active"`
	PasswordHash null.Bytes     `db:"password_hash"`
	CreatedAt    null.Time      `db:"created_at"`
	UpdatedAt    null.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func (r userRow) unpack() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name.String,
		Username:     r.Username.String,
		Email:        r.Email.String,
		Roles:        r.Roles,
		Cohort:       r.Cohort,
		IsActive:     r.IsActive.Ptr(),
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
		LastLogin:    r.LastLogin.Time,
	}
}

func packUser(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         null.NewString(usr.Name, usr.Name != ""),
		Username:     null.NewString(usr.Username, usr.Username != ""),
		Email:        null.NewString(usr.Email, usr.Email != ""),
		Roles:        usr.Roles,
		Cohort:       usr.Cohort,
		IsActive:     null.BoolFromPtr(usr.IsActive),
		PasswordHash: null.BytesFrom(usr.PasswordHash),
		CreatedAt:    null.NewTime(usr.CreatedAt.UTC(), !usr.CreatedAt.IsZero()),
		UpdatedAt:    null.NewTime(usr.UpdatedAt.UTC(), !usr.UpdatedAt.IsZero()),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	check := func(column, value string, exists error) error {
		if value == "" {
			return nil
		}
		q := psql.Select("1").From(userTable).Where(sq.Eq{column: value})
		if len(excludedUsers) > 0 {
			ids := make([]string, 0, len(excludedUsers))
			for _, u := range excludedUsers {
				ids = append(ids, u.ID)
			}
			q = q.Where(sq.NotEq{"id": ids})
		}
		query, args, err := q.Limit(1).ToSql()
		if err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
		var found int
		if err := repo.db.GetContext(ctx, &found, query, args...); err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return errors.Wrap(err, "checking user uniqueness")
		}
		return exists
	}

	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := packUser(usr)

	query, args, err := psql.Insert(userTable).
		Columns(userColumns...).
		Values(row.ID, row.Name, row.Username, row.Email, row.Roles, row.Cohort,
			row.IsActive, row.PasswordHash, row.CreatedAt, row.UpdatedAt, row.LastLogin).
		ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building user insert")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	q := psql.Select(userColumns...).From(userTable)

	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			q = q.Where(sq.Or{
				sq.ILike{"name": val},
				sq.ILike{"username": val},
				sq.ILike{"email": val},
			})
		}
		if len(filter.Roles) > 0 {
			q = q.Where("roles && ?", pq.StringArray(filter.Roles))
		}
		if filter.Cohort != "" {
			q = q.Where(sq.Eq{"cohort": filter.Cohort})
		}
		if filter.IsActive != nil {
			q = q.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		if !filter.CreatedFrom.IsZero() {
			q = q.Where(sq.GtOrEq{"created_at": filter.CreatedFrom})
		}
		if !filter.CreatedTo.IsZero() {
			q = q.Where(sq.LtOrEq{"created_at": filter.CreatedTo})
		}
	}
	q = applyOrdering(q, ordering, "created_at DESC")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building users query")
	}
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.unpack())
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	q := psql.Select(userColumns...).From(userTable)
	switch {
	case filter.ID != "":
		q = q.Where(sq.Eq{"id": filter.ID})
	case filter.Username != "":
		q = q.Where(sq.Eq{"username": filter.Username})
	case filter.Email != "":
		q = q.Where(sq.Eq{"email": filter.Email})
	case len(filter.UsernameOrEmail) == 2:
		q = q.Where(sq.Or{
			sq.Eq{"username": filter.UsernameOrEmail[0]},
			sq.Eq{"email": filter.UsernameOrEmail[1]},
		})
	default:
		return user.User{}, user.ErrNotFound
	}

	query, args, err := q.ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building user query")
	}
	var row userRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user")
	}
	return row.unpack(), nil
}

// UpdateUser applies usr's non-zero fields and reloads the row.
func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := psql.Update(userTable).Where(sq.Eq{"id": usr.ID})

	if usr.Name != "" {
		q = q.Set("name", usr.Name)
	}
	if usr.Username != "" {
		q = q.Set("username", usr.Username)
	}
	if usr.Email != "" {
		q = q.Set("email", usr.Email)
	}
	if usr.Roles != nil {
		q = q.Set("roles", pq.StringArray(usr.Roles))
	}
	if usr.Cohort != "" {
		q = q.Set("cohort", usr.Cohort)
	}
	if usr.IsActive != nil {
		q = q.Set("is_active", *usr.IsActive)
	}
	if usr.PasswordHash != nil {
		q = q.Set("password_hash", usr.PasswordHash)
	}
	if !usr.LastLogin.IsZero() {
		q = q.Set("last_login", usr.LastLogin.UTC())
	}
	if usr.UpdatedAt.IsZero() {
		usr.UpdatedAt = time.Now().UTC()
	}
	q = q.Set("updated_at", usr.UpdatedAt.UTC())

	query, args, err := q.ToSql()
	if err != nil {
		return user.User{}, errors.Wrap(err, "building user update")
	}
	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID != "" {
		return repo.UpdateUser(ctx, usr)
	}
	existing, err := repo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{usr.Username, usr.Email}})
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			if usr.CreatedAt.IsZero() {
				usr.CreatedAt = time.Now().UTC()
				usr.UpdatedAt = usr.CreatedAt
			}
			return repo.CreateUser(ctx, usr)
		}
		return user.User{}, err
	}
	usr.ID = existing.ID
	return repo.UpdateUser(ctx, usr)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := psql.Delete(userTable).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building users delete")
	}
	if _, err := repo.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
