package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Permissions  []string  `json:"permissions"`
	CreatedAt    time.Time `json:"created_at"`
}

const userSelectCols = `id, username, password_hash, role, permissions, created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	var perms string
	var createdAt any
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &perms, &createdAt); err != nil {
		return nil, translate(err)
	}
	u.Permissions = splitPermissions(perms)
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

func splitPermissions(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (q *Queries) CreateUser(ctx context.Context, u *User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	err := q.run.QueryRowContext(ctx, q.Q(`INSERT INTO users (username, password_hash, role, permissions, created_at) VALUES (?, ?, ?, ?, ?) RETURNING id`),
		u.Username, u.PasswordHash, u.Role, strings.Join(u.Permissions, ","), q.ts(u.CreatedAt)).Scan(&u.ID)
	if err != nil {
		return fmt.Errorf("create user: %w", translate(err))
	}
	return nil
}

func (q *Queries) GetUser(ctx context.Context, id int64) (*User, error) {
	return scanUser(q.run.QueryRowContext(ctx, q.Q(`SELECT `+userSelectCols+` FROM users WHERE id=?`), id))
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(q.run.QueryRowContext(ctx, q.Q(`SELECT `+userSelectCols+` FROM users WHERE username=?`), username))
}

func (q *Queries) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := q.run.QueryContext(ctx, `SELECT `+userSelectCols+` FROM users ORDER BY username`)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser writes username, role and permissions, and the password hash
// when it is non-empty.
func (q *Queries) UpdateUser(ctx context.Context, u *User) error {
	query := `UPDATE users SET username=?, role=?, permissions=? WHERE id=?`
	args := []any{u.Username, u.Role, strings.Join(u.Permissions, ","), u.ID}
	if u.PasswordHash != "" {
		query = `UPDATE users SET username=?, role=?, permissions=?, password_hash=? WHERE id=?`
		args = []any{u.Username, u.Role, strings.Join(u.Permissions, ","), u.PasswordHash, u.ID}
	}
	res, err := q.run.ExecContext(ctx, q.Q(query), args...)
	if err != nil {
		return fmt.Errorf("update user: %w", translate(err))
	}
	return requireAffected(res)
}

func (q *Queries) DeleteUser(ctx context.Context, id int64) error {
	res, err := q.run.ExecContext(ctx, q.Q(`DELETE FROM users WHERE id=?`), id)
	if err != nil {
		return fmt.Errorf("delete user: %w", translate(err))
	}
	return requireAffected(res)
}

func (q *Queries) UserExists(ctx context.Context) (bool, error) {
	var count int
	err := q.run.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count > 0, translate(err)
}
