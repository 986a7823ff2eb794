package tracking

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"parttracker/store"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	minPasswordLen = 6
)

// UserInput describes an account to create or update. An empty Password on
// update keeps the current one.
type UserInput struct {
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

func (in *UserInput) Validate(requirePassword bool) error {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" {
		return invalid("username", "must not be empty")
	}
	if utf8.RuneCountInString(in.Username) > 64 {
		return invalid("username", "must be at most 64 characters")
	}
	if in.Password != "" || requirePassword {
		if utf8.RuneCountInString(in.Password) < minPasswordLen {
			return invalid("password", "must be at least %d characters", minPasswordLen)
		}
	}
	switch in.Role {
	case "":
		in.Role = RoleUser
	case RoleAdmin, RoleUser:
	default:
		return invalid("role", "unknown role %q", in.Role)
	}
	perms := make([]string, 0, len(in.Permissions)+1)
	for _, p := range in.Permissions {
		p = strings.TrimSpace(p)
		if !ValidPermission(p) {
			return invalid("permissions", "unknown permission %q", p)
		}
		if !slices.Contains(perms, p) {
			perms = append(perms, p)
		}
	}
	if in.Role == RoleAdmin && !slices.Contains(perms, string(PermManageUsers)) {
		perms = append(perms, string(PermManageUsers))
	}
	in.Permissions = perms
	return nil
}

// ActorFor builds the actor for an authenticated user.
func ActorFor(u *store.User) Actor {
	id := u.ID
	return Actor{UserID: &id, Username: u.Username, Permissions: u.Permissions}
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// Authenticate checks a username and password and records the login.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*store.User, error) {
	u, err := s.db.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, wrapErr("login", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	if err := s.audit(ctx, s.db.Queries, ActorFor(u), "", ActionLogin, ""); err != nil {
		return nil, wrapErr("login", err)
	}
	return u, nil
}

func (s *Service) Logout(ctx context.Context, actor Actor) error {
	return wrapErr("logout", s.audit(ctx, s.db.Queries, actor, "", ActionLogout, ""))
}

// EnsureDefaultAdmin creates admin/admin when no account exists yet. The
// bootstrap password is shorter than the minimum and must be changed.
func (s *Service) EnsureDefaultAdmin(ctx context.Context) (bool, error) {
	exists, err := s.db.UserExists(ctx)
	if err != nil || exists {
		return false, wrapErr("ensure admin", err)
	}
	in := UserInput{Username: "admin", Role: RoleAdmin, Permissions: []string{string(PermManageUsers)}}
	if _, err := s.createUser(ctx, System, in, "admin"); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) CreateUser(ctx context.Context, actor Actor, in UserInput) (*store.User, error) {
	if err := in.Validate(true); err != nil {
		return nil, wrapErr("create user", err)
	}
	return s.createUser(ctx, actor, in, in.Password)
}

func (s *Service) createUser(ctx context.Context, actor Actor, in UserInput, password string) (*store.User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, wrapErr("create user", err)
	}
	u := &store.User{Username: in.Username, PasswordHash: hash, Role: in.Role, Permissions: in.Permissions, CreatedAt: s.now()}
	err = s.db.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.CreateUser(ctx, u); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				return fmt.Errorf("user %q: %w", in.Username, ErrDuplicateName)
			}
			return err
		}
		return s.audit(ctx, tx.Queries, actor, "", ActionUserCreated, userDetails(u))
	})
	if err != nil {
		return nil, wrapErr("create user", err)
	}
	return u, nil
}

func (s *Service) UpdateUser(ctx context.Context, actor Actor, id int64, in UserInput) (*store.User, error) {
	if err := in.Validate(false); err != nil {
		return nil, wrapErr("update user", err)
	}
	var hash string
	if in.Password != "" {
		var err error
		if hash, err = hashPassword(in.Password); err != nil {
			return nil, wrapErr("update user", err)
		}
	}
	var u *store.User
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if u, err = tx.GetUser(ctx, id); err != nil {
			return fmt.Errorf("user %d: %w", id, err)
		}
		if actor.UserID != nil && *actor.UserID == id && in.Role != RoleAdmin && u.Role == RoleAdmin {
			return fmt.Errorf("cannot revoke your own admin role: %w", ErrPermission)
		}
		u.Username, u.Role, u.Permissions, u.PasswordHash = in.Username, in.Role, in.Permissions, hash
		if err := tx.UpdateUser(ctx, u); err != nil {
			if errors.Is(err, store.ErrDuplicateKey) {
				return fmt.Errorf("user %q: %w", in.Username, ErrDuplicateName)
			}
			return err
		}
		details := userDetails(u)
		if hash != "" {
			details += ", password changed"
		}
		return s.audit(ctx, tx.Queries, actor, "", ActionUserUpdated, details)
	})
	if err != nil {
		return nil, wrapErr("update user", err)
	}
	u.PasswordHash = ""
	return u, nil
}

// DeleteUser removes an account. Audit entries keep the username but lose the link.
func (s *Service) DeleteUser(ctx context.Context, actor Actor, id int64) error {
	if actor.UserID != nil && *actor.UserID == id {
		return wrapErr("delete user", fmt.Errorf("cannot delete your own account: %w", ErrPermission))
	}
	err := s.db.WithTx(ctx, func(tx *store.Tx) error {
		u, err := tx.GetUser(ctx, id)
		if err != nil {
			return fmt.Errorf("user %d: %w", id, err)
		}
		if err := tx.DeleteUser(ctx, id); err != nil {
			return err
		}
		return s.audit(ctx, tx.Queries, actor, "", ActionUserDeleted, u.Username)
	})
	return wrapErr("delete user", err)
}

func (s *Service) GetUser(ctx context.Context, id int64) (*store.User, error) {
	u, err := s.db.GetUser(ctx, id)
	return u, wrapErr("get user", err)
}

func (s *Service) ListUsers(ctx context.Context) ([]*store.User, error) {
	users, err := s.db.ListUsers(ctx)
	return users, wrapErr("list users", err)
}

func userDetails(u *store.User) string {
	return fmt.Sprintf("%s (%s) permissions: %s", u.Username, u.Role, strings.Join(u.Permissions, ", "))
}
