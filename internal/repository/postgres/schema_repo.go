package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"docuflow/internal/domain"
	"docuflow/internal/port"
)

type schemaRepo struct {
	db *sqlx.DB
}

// NewSchemaRepo creates a new PostgreSQL-backed SchemaRepository.
func NewSchemaRepo(db *sqlx.DB) port.SchemaRepository {
	return &schemaRepo{db: db}
}

func (r *schemaRepo) Create(ctx context.Context, schema *domain.Schema) error {
	now := time.Now().UTC()
	schema.CreatedAt = now
	schema.UpdatedAt = now
	if schema.Version == 0 {
		schema.Version = 1
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("schemaRepo.Create begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO schemas (id, tenant_id, name, description, version, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		schema.ID, schema.TenantID, schema.Name, schema.Description,
		schema.Version, schema.CreatedBy, schema.CreatedAt, schema.UpdatedAt)
	if err != nil {
		return fmt.Errorf("schemaRepo.Create: %w", err)
	}

	for i := range schema.Fields {
		f := &schema.Fields[i]
		f.SchemaID = schema.ID
		f.CreatedAt = now
		_, err = tx.ExecContext(ctx,
			`INSERT INTO schema_fields (id, schema_id, name, label, field_type, required, options, display_order, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			f.ID, f.SchemaID, f.Name, f.Label, f.Type, f.Required, f.Options, f.DisplayOrder, f.CreatedAt)
		if err != nil {
			return fmt.Errorf("schemaRepo.Create field %q: %w", f.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("schemaRepo.Create commit: %w", err)
	}
	return nil
}

func (r *schemaRepo) GetByID(ctx context.Context, tenantID, schemaID uuid.UUID) (*domain.Schema, error) {
	var schema domain.Schema
	err := r.db.GetContext(ctx, &schema,
		"SELECT * FROM schemas WHERE id = $1 AND tenant_id = $2", schemaID, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSchemaNotFound
		}
		return nil, fmt.Errorf("schemaRepo.GetByID: %w", err)
	}

	err = r.db.SelectContext(ctx, &schema.Fields,
		"SELECT * FROM schema_fields WHERE schema_id = $1 ORDER BY display_order", schemaID)
	if err != nil {
		return nil, fmt.Errorf("schemaRepo.GetByID fields: %w", err)
	}
	return &schema, nil
}

func (r *schemaRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]domain.Schema, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM schemas WHERE tenant_id = $1", tenantID)
	if err != nil {
		return nil, 0, fmt.Errorf("schemaRepo.ListByTenant count: %w", err)
	}

	var schemas []domain.Schema
	err = r.db.SelectContext(ctx, &schemas,
		`SELECT * FROM schemas WHERE tenant_id = $1
		 ORDER BY created_at, id LIMIT $2 OFFSET $3`,
		tenantID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("schemaRepo.ListByTenant: %w", err)
	}

	for i := range schemas {
		err = r.db.SelectContext(ctx, &schemas[i].Fields,
			"SELECT * FROM schema_fields WHERE schema_id = $1 ORDER BY display_order", schemas[i].ID)
		if err != nil {
			return nil, 0, fmt.Errorf("schemaRepo.ListByTenant fields: %w", err)
		}
	}
	return schemas, total, nil
}

func (r *schemaRepo) UpdateMeta(ctx context.Context, schema *domain.Schema) error {
	schema.UpdatedAt = time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE schemas SET name = $1, description = $2, version = $3, updated_at = $4
		 WHERE id = $5 AND tenant_id = $6`,
		schema.Name, schema.Description, schema.Version, schema.UpdatedAt, schema.ID, schema.TenantID)
	if err != nil {
		return fmt.Errorf("schemaRepo.UpdateMeta: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrSchemaNotFound
	}
	return nil
}

func (r *schemaRepo) Delete(ctx context.Context, tenantID, schemaID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM schemas WHERE id = $1 AND tenant_id = $2", schemaID, tenantID)
	if err != nil {
		return fmt.Errorf("schemaRepo.Delete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrSchemaNotFound
	}
	return nil
}

func (r *schemaRepo) AddField(ctx context.Context, tenantID uuid.UUID, field *domain.FieldDefinition) error {
	field.CreatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("schemaRepo.AddField begin: %w", err)
	}
	defer tx.Rollback()

	// Bump the version first; it also verifies tenant ownership.
	result, err := tx.ExecContext(ctx,
		"UPDATE schemas SET version = version + 1, updated_at = $1 WHERE id = $2 AND tenant_id = $3",
		field.CreatedAt, field.SchemaID, tenantID)
	if err != nil {
		return fmt.Errorf("schemaRepo.AddField version: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrSchemaNotFound
	}

	// Shift fields at or after the requested position, then insert there.
	_, err = tx.ExecContext(ctx,
		`UPDATE schema_fields SET display_order = display_order + 1
		 WHERE schema_id = $1 AND display_order >= $2`,
		field.SchemaID, field.DisplayOrder)
	if err != nil {
		return fmt.Errorf("schemaRepo.AddField shift: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO schema_fields (id, schema_id, name, label, field_type, required, options, display_order, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		field.ID, field.SchemaID, field.Name, field.Label, field.Type,
		field.Required, field.Options, field.DisplayOrder, field.CreatedAt)
	if err != nil {
		return fmt.Errorf("schemaRepo.AddField: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("schemaRepo.AddField commit: %w", err)
	}
	return nil
}

func (r *schemaRepo) RemoveField(ctx context.Context, tenantID, schemaID, fieldID uuid.UUID) error {
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("schemaRepo.RemoveField begin: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE schemas SET version = version + 1, updated_at = $1 WHERE id = $2 AND tenant_id = $3",
		now, schemaID, tenantID)
	if err != nil {
		return fmt.Errorf("schemaRepo.RemoveField version: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrSchemaNotFound
	}

	result, err = tx.ExecContext(ctx,
		"DELETE FROM schema_fields WHERE id = $1 AND schema_id = $2", fieldID, schemaID)
	if err != nil {
		return fmt.Errorf("schemaRepo.RemoveField: %w", err)
	}
	rows, _ = result.RowsAffected()
	if rows == 0 {
		return domain.ErrFieldNotFound
	}

	// Renumber remaining fields densely from zero, keeping relative order.
	_, err = tx.ExecContext(ctx,
		`UPDATE schema_fields sf SET display_order = ranked.rn
		 FROM (
		   SELECT id, ROW_NUMBER() OVER (ORDER BY display_order) - 1 AS rn
		   FROM schema_fields WHERE schema_id = $1
		 ) ranked
		 WHERE sf.id = ranked.id`,
		schemaID)
	if err != nil {
		return fmt.Errorf("schemaRepo.RemoveField renumber: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("schemaRepo.RemoveField commit: %w", err)
	}
	return nil
}
