package sqlxrepos

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classforms/core"
	"github.com/trezcool/classforms/core/user"
)

const userEmailKey = "user_email_key"

var (
	userColumns = []string{"id", "name", "email", "is_active", "roles", "password_hash", "created_at", "updated_at", "last_login"}

	userOrderings = map[string]bool{"name": true, "email": true, "created_at": true, "last_login": true}
)

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Email        string         `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    null.Time      `db:"last_login"`
}

func (r userRow) toUser() user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		IsActive:     r.IsActive,
		Roles:        []string(r.Roles),
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

func lastLogin(usr user.User) null.Time {
	if usr.LastLogin.IsZero() {
		return null.Time{}
	}
	return null.TimeFrom(usr.LastLogin)
}

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db core.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	_, err := execx(ctx, repo.db, psql.Insert(`"user"`).
		Columns(userColumns...).
		Values(usr.ID, usr.Name, usr.Email, usr.IsActive, pq.Array(usr.Roles), usr.PasswordHash, usr.CreatedAt, usr.UpdatedAt, lastLogin(usr)))
	if err != nil {
		if isUniqueViolation(err, userEmailKey) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	b := psql.Select(userColumns...).From(`"user"`)
	if filter != nil {
		if filter.Search != "" {
			pattern := "%" + strings.NewReplacer("%", `\%`, "_", `\_`).Replace(filter.Search) + "%"
			b = b.Where("(name ILIKE ? OR email ILIKE ?)", pattern, pattern)
		}
		if len(filter.IDs) > 0 {
			ids := make([]string, 0, len(filter.IDs))
			for _, id := range filter.IDs {
				if _, err := uuid.Parse(id); err == nil {
					ids = append(ids, id)
				}
			}
			if len(ids) == 0 {
				return []user.User{}, nil
			}
			b = b.Where(sq.Eq{"id": ids})
		}
		if len(filter.Roles) > 0 {
			patterns := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				patterns = append(patterns, role+"%")
			}
			b = b.Where("EXISTS (SELECT 1 FROM unnest(roles) AS r WHERE r LIKE ANY (?))", pq.Array(patterns))
		}
		if filter.IsActive != nil {
			b = b.Where(sq.Eq{"is_active": *filter.IsActive})
		}
	}

	orderBy := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if userOrderings[ord.Field] {
			orderBy = append(orderBy, ord.String())
		}
	}
	orderBy = append(orderBy, "created_at ASC", "id ASC")

	var rows []userRow
	if err := selectx(ctx, repo.db, &rows, b.OrderBy(orderBy...)); err != nil {
		return nil, errors.Wrap(err, "selecting users")
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	return users, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	b := psql.Select(userColumns...).From(`"user"`)
	switch {
	case filter.ID != "":
		b = b.Where(sq.Eq{"id": filter.ID})
	case filter.Email != "":
		b = b.Where(sq.Eq{"email": filter.Email})
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := getx(ctx, repo.db, &row, b); err != nil {
		if isNotFound(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "selecting user")
	}
	return row.toUser(), nil
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	res, err := execx(ctx, repo.db, psql.Update(`"user"`).
		Set("name", usr.Name).
		Set("email", usr.Email).
		Set("is_active", usr.IsActive).
		Set("roles", pq.Array(usr.Roles)).
		Set("password_hash", usr.PasswordHash).
		Set("updated_at", usr.UpdatedAt).
		Set("last_login", lastLogin(usr)).
		Where(sq.Eq{"id": usr.ID}))
	if err != nil {
		if isUniqueViolation(err, userEmailKey) {
			return user.User{}, user.ErrEmailExists
		}
		if isNotFound(err) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}
