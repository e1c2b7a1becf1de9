package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/classforms/core"
)

// Roles
const (
	// Admin
	RoleAdmin = "admin:"

	// Teacher
	RoleTeacher = "teacher:"

	// Student
	RoleStudent = "student:"
)

var (
	AllRoles = []string{RoleAdmin, RoleTeacher, RoleStudent}

	// roles selectable at registration
	registrationRoles = map[string]string{
		"student": RoleStudent,
		"teacher": RoleTeacher,
	}
)

type User struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	Roles        []string  `json:"roles" db:"-"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login" db:"-"`          // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if i := strings.Index(u.Email, "@"); i > 0 {
		return u.Email[:i]
	}
	return u.Email
}

func (u User) IsAdmin() bool   { return hasRole(u.Roles, RoleAdmin) }
func (u User) IsTeacher() bool { return hasRole(u.Roles, RoleTeacher) }
func (u User) IsStudent() bool { return hasRole(u.Roles, RoleStudent) }

// Principal returns the authenticated identity of the User.
func (u User) Principal() Principal {
	return Principal{
		ID:    u.ID,
		Name:  u.DisplayName(),
		Email: u.Email,
		Roles: u.Roles,
	}
}

// Principal is the authenticated caller of an operation.
// It is built per request and passed explicitly into every service call.
type Principal struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

func (p Principal) IsAuthenticated() bool { return p.ID != "" }
func (p Principal) IsAdmin() bool         { return hasRole(p.Roles, RoleAdmin) }
func (p Principal) IsTeacher() bool       { return hasRole(p.Roles, RoleTeacher) }
func (p Principal) IsStudent() bool       { return hasRole(p.Roles, RoleStudent) }

func hasRole(roles []string, prefix string) bool {
	for _, role := range roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	Name            string `json:"name" form:"name"`
	Email           string `json:"email" form:"email" validate:"required,email"`
	Password        string `json:"password" form:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" form:"password_confirm" validate:"omitempty,eqfield=Password"`
	Role            string `json:"role" form:"role" validate:"omitempty,oneof=student teacher"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	return validate.Struct(nu)
}

// Roles returns the roles granted by the registration; students by default.
func (nu NewUser) Roles() []string {
	if role, ok := registrationRoles[nu.Role]; ok {
		return []string{role}
	}
	return []string{RoleStudent}
}

type QueryFilter struct {
	Search   string   `query:"search"`
	IDs      []string `query:"id"`
	Roles    []string `query:"role"`
	IsActive *bool    `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.IDs = core.CleanStrings(qf.IDs)
}

// GetFilter selects a single User by ID or Email (first non-empty wins).
type GetFilter struct {
	ID    string
	Email string
}
