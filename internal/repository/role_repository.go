package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/pemetaan-keswa/internal/database"
	"github.com/stemsi/pemetaan-keswa/internal/model"
)

// RoleRepository handles role and permission data access.
type RoleRepository struct {
	pool *pgxpool.Pool
}

// NewRoleRepository creates a new RoleRepository.
func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

// GetPermissionsByRoleID retrieves all permission codes for a given role.
func (r *RoleRepository) GetPermissionsByRoleID(ctx context.Context, roleID int) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.code
		 FROM permissions p
		 JOIN role_permissions rp ON p.id = rp.permission_id
		 WHERE rp.role_id = $1
		 ORDER BY p.code`, roleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	permissions := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		permissions = append(permissions, code)
	}
	return permissions, rows.Err()
}

// GetRoleByID retrieves a role and its permissions by ID.
func (r *RoleRepository) GetRoleByID(ctx context.Context, id int) (*model.RoleWithPermissions, error) {
	role := &model.Role{ID: id}
	err := r.pool.QueryRow(ctx,
		`SELECT name, description, created_at FROM roles WHERE id = $1`, id,
	).Scan(&role.Name, &role.Description, &role.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}

	permissions, err := r.GetPermissionsByRoleID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &model.RoleWithPermissions{
		Role:        role,
		Permissions: permissions,
	}, nil
}

// GetRoleByName retrieves a role by its unique name.
func (r *RoleRepository) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	role := &model.Role{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at FROM roles WHERE name = $1`, name,
	).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return role, nil
}

// ListRolesWithPermissions retrieves all roles with their associated permissions
// in a single query.
func (r *RoleRepository) ListRolesWithPermissions(ctx context.Context) ([]model.RoleWithPermissions, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.name, r.description, r.created_at,
		        COALESCE(array_agg(p.code ORDER BY p.code) FILTER (WHERE p.code IS NOT NULL), '{}')
		 FROM roles r
		 LEFT JOIN role_permissions rp ON rp.role_id = r.id
		 LEFT JOIN permissions p ON p.id = rp.permission_id
		 GROUP BY r.id
		 ORDER BY r.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := []model.RoleWithPermissions{}
	for rows.Next() {
		role := &model.Role{}
		var permissions []string
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &permissions); err != nil {
			return nil, err
		}
		roles = append(roles, model.RoleWithPermissions{Role: role, Permissions: permissions})
	}
	return roles, rows.Err()
}

// CreateRole inserts a role together with its permissions and returns its ID.
func (r *RoleRepository) CreateRole(ctx context.Context, name, description string, permissionCodes []string) (int, error) {
	var id int
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			`INSERT INTO roles (name, description) VALUES ($1, $2) RETURNING id`, name, description,
		).Scan(&id); err != nil {
			return translate(err)
		}
		return assignPermissions(ctx, tx, id, permissionCodes)
	})
	return id, err
}

// UpdateRole replaces a role's name, description and permission set.
func (r *RoleRepository) UpdateRole(ctx context.Context, id int, name, description string, permissionCodes []string) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE roles SET name = $1, description = $2 WHERE id = $3`, name, description, id)
		if err != nil {
			return translate(err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		return assignPermissions(ctx, tx, id, permissionCodes)
	})
}

// DeleteRole removes a role. Roles still assigned to users cannot be deleted.
func (r *RoleRepository) DeleteRole(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsurePermissionCatalog inserts every known permission code that is missing
// from the permissions table.
func (r *RoleRepository) EnsurePermissionCatalog(ctx context.Context) error {
	codes := make([]string, len(model.AllPermissions))
	for i, p := range model.AllPermissions {
		codes[i] = string(p)
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO permissions (code)
		 SELECT unnest($1::text[])
		 ON CONFLICT (code) DO NOTHING`, codes)
	return err
}

// GrantAllPermissions assigns every permission in the catalog to a role and
// returns the number of grants added.
func (r *RoleRepository) GrantAllPermissions(ctx context.Context, roleID int) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO role_permissions (role_id, permission_id)
		 SELECT $1, id FROM permissions
		 ON CONFLICT DO NOTHING`, roleID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// assignPermissions assigns a list of permission codes to a role. Unknown codes
// are ignored.
func assignPermissions(ctx context.Context, tx pgx.Tx, roleID int, permissionCodes []string) error {
	if len(permissionCodes) == 0 {
		return nil
	}

	rows, err := tx.Query(ctx, `SELECT id FROM permissions WHERE code = ANY($1)`, permissionCodes)
	if err != nil {
		return err
	}
	var permissionIDs []int
	for rows.Next() {
		var pid int
		if err := rows.Scan(&pid); err != nil {
			rows.Close()
			return err
		}
		permissionIDs = append(permissionIDs, pid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if len(permissionIDs) == 0 {
		return nil
	}

	_, err = tx.CopyFrom(
		ctx,
		pgx.Identifier{"role_permissions"},
		[]string{"role_id", "permission_id"},
		pgx.CopyFromSlice(len(permissionIDs), func(i int) ([]interface{}, error) {
			return []interface{}{roleID, permissionIDs[i]}, nil
		}),
	)
	return err
}
