package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/classforms/core"
	"github.com/trezcool/classforms/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func copyUser(usr user.User) user.User {
	usr.Roles = copyStrings(usr.Roles)
	if usr.PasswordHash != nil {
		hash := make([]byte, len(usr.PasswordHash))
		copy(hash, usr.PasswordHash)
		usr.PasswordHash = hash
	}
	return usr
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	err := repo.db.write(nil, func(t *tables) error {
		for _, u := range t.users {
			if u.Email == usr.Email {
				return user.ErrEmailExists
			}
		}
		if usr.ID == "" {
			usr.ID = uuid.New().String()
		}
		t.users[usr.ID] = copyUser(usr)
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	users := make([]user.User, 0)
	_ = repo.db.read(nil, func(t *tables) error {
		for _, u := range t.users {
			if matchUser(u, filter) {
				users = append(users, copyUser(u))
			}
		}
		return nil
	})
	sortUsers(users, ordering)
	return users, nil
}

func matchUser(u user.User, filter *user.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(u.Name), search) && !strings.Contains(strings.ToLower(u.Email), search) {
			return false
		}
	}
	if len(filter.IDs) > 0 && !containsString(filter.IDs, u.ID) {
		return false
	}
	if len(filter.Roles) > 0 && !hasAnyRole(u.Roles, filter.Roles) {
		return false
	}
	if filter.IsActive != nil && u.IsActive != *filter.IsActive {
		return false
	}
	return true
}

func hasAnyRole(roles, wanted []string) bool {
	for _, r := range roles {
		for _, w := range wanted {
			if strings.HasPrefix(r, w) {
				return true
			}
		}
	}
	return false
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func sortUsers(users []user.User, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "created_at", Ascending: true}}
	}
	sort.SliceStable(users, func(i, j int) bool {
		for _, ord := range ordering {
			var cmp int
			switch ord.Field {
			case "name":
				cmp = strings.Compare(strings.ToLower(users[i].Name), strings.ToLower(users[j].Name))
			case "email":
				cmp = strings.Compare(users[i].Email, users[j].Email)
			case "created_at":
				switch {
				case users[i].CreatedAt.Before(users[j].CreatedAt):
					cmp = -1
				case users[i].CreatedAt.After(users[j].CreatedAt):
					cmp = 1
				}
			}
			if cmp != 0 {
				return (cmp < 0) == ord.Ascending
			}
		}
		return users[i].ID < users[j].ID
	})
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	var (
		usr   user.User
		found bool
	)
	_ = repo.db.read(nil, func(t *tables) error {
		if filter.ID != "" {
			usr, found = t.users[filter.ID]
			return nil
		}
		if filter.Email != "" {
			for _, u := range t.users {
				if u.Email == filter.Email {
					usr, found = u, true
					return nil
				}
			}
		}
		return nil
	})
	if !found {
		return user.User{}, user.ErrNotFound
	}
	return copyUser(usr), nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	err := repo.db.write(nil, func(t *tables) error {
		if _, ok := t.users[usr.ID]; !ok {
			return user.ErrNotFound
		}
		for _, u := range t.users {
			if u.Email == usr.Email && u.ID != usr.ID {
				return user.ErrEmailExists
			}
		}
		t.users[usr.ID] = copyUser(usr)
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}
