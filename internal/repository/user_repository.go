package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/pemetaan-keswa/internal/model"
)

// UserRepository handles user data access.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `u.id, u.email, u.name, u.phone, u.password_hash, u.role_id, r.name,
	u.is_active, u.created_at, u.updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.PasswordHash, &u.RoleID, &u.RoleName,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id int) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users u JOIN roles r ON u.role_id = r.id
		 WHERE u.id = $1`, id))
}

// GetByEmail retrieves a user by their unique email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+`
		 FROM users u JOIN roles r ON u.role_id = r.id
		 WHERE u.email = $1`, email))
}

// List retrieves a page of users, optionally filtered by role.
func (r *UserRepository) List(ctx context.Context, roleID, limit, offset int) ([]model.User, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	if roleID > 0 {
		args = append(args, roleID)
		where += ` AND u.role_id = ` + placeholder(args)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users u`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit)
	limitArg := placeholder(args)
	args = append(args, offset)
	offsetArg := placeholder(args)

	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+`
		 FROM users u JOIN roles r ON u.role_id = r.id`+where+`
		 ORDER BY u.created_at DESC LIMIT `+limitArg+` OFFSET `+offsetArg, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, phone, password_hash, role_id, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		u.Email, u.Name, u.Phone, u.PasswordHash, u.RoleID, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return translate(err)
}

// Update persists the mutable fields of a user.
func (r *UserRepository) Update(ctx context.Context, u *model.User) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE users
		 SET name = $1, phone = $2, password_hash = $3, role_id = $4, is_active = $5, updated_at = NOW()
		 WHERE id = $6
		 RETURNING updated_at`,
		u.Name, u.Phone, u.PasswordHash, u.RoleID, u.IsActive, u.ID,
	).Scan(&u.UpdatedAt)
	return translate(err)
}

// CountActiveByRoleName counts active users holding the named role.
func (r *UserRepository) CountActiveByRoleName(ctx context.Context, roleName string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users u JOIN roles r ON u.role_id = r.id
		 WHERE r.name = $1 AND u.is_active`, roleName,
	).Scan(&n)
	return n, err
}
