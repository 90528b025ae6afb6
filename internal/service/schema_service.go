package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"docuflow/internal/domain"
	"docuflow/internal/port"
)

// FieldInput is the DTO for one field definition in a schema request.
type FieldInput struct {
	Name         string           `json:"name" binding:"required"`
	Label        string           `json:"label"`
	Type         domain.FieldType `json:"field_type" binding:"required"`
	Required     bool             `json:"required"`
	Options      []string         `json:"options"`
	DisplayOrder *int             `json:"display_order"`
}

// SchemaCreateInput is the DTO for schema creation requests.
type SchemaCreateInput struct {
	TenantID    uuid.UUID
	CreatedBy   uuid.UUID
	Name        string       `json:"name" binding:"required"`
	Description string       `json:"description"`
	Fields      []FieldInput `json:"fields" binding:"required"`
}

// SchemaUpdateInput is the DTO for schema metadata updates.
type SchemaUpdateInput struct {
	TenantID    uuid.UUID
	SchemaID    uuid.UUID
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// SchemaService defines the schema registry contract.
type SchemaService interface {
	Create(ctx context.Context, input SchemaCreateInput) (*domain.Schema, error)
	GetByID(ctx context.Context, tenantID, schemaID uuid.UUID) (*domain.Schema, error)
	List(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]domain.Schema, int, error)
	UpdateMeta(ctx context.Context, input SchemaUpdateInput) (*domain.Schema, error)
	Delete(ctx context.Context, tenantID, schemaID uuid.UUID) error
	AddField(ctx context.Context, tenantID, schemaID uuid.UUID, input FieldInput) (*domain.Schema, error)
	RemoveField(ctx context.Context, tenantID, schemaID, fieldID uuid.UUID) (*domain.Schema, error)
}

type schemaService struct {
	schemaRepo port.SchemaRepository
	docRepo    port.DocumentRepository
}

// NewSchemaService creates a new SchemaService implementation.
func NewSchemaService(schemaRepo port.SchemaRepository, docRepo port.DocumentRepository) SchemaService {
	return &schemaService{schemaRepo: schemaRepo, docRepo: docRepo}
}

func (s *schemaService) Create(ctx context.Context, input SchemaCreateInput) (*domain.Schema, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: schema name is required", domain.ErrValidation)
	}
	if len(input.Fields) == 0 {
		return nil, fmt.Errorf("%w: schema needs at least one field", domain.ErrValidation)
	}

	fields := make([]domain.FieldDefinition, 0, len(input.Fields))
	seen := make(map[string]bool, len(input.Fields))
	for i, in := range input.Fields {
		field, err := buildField(in, i)
		if err != nil {
			return nil, err
		}
		if seen[field.Name] {
			return nil, fmt.Errorf("%w: %q", domain.ErrDuplicateFieldName, field.Name)
		}
		seen[field.Name] = true
		fields = append(fields, *field)
	}

	// Requested display orders may be sparse or duplicated; renumber densely
	// from zero, breaking ties by input position.
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].DisplayOrder < fields[j].DisplayOrder
	})
	for i := range fields {
		fields[i].DisplayOrder = i
	}

	schema := &domain.Schema{
		ID:          uuid.New(),
		TenantID:    input.TenantID,
		Name:        input.Name,
		Description: input.Description,
		Version:     1,
		CreatedBy:   input.CreatedBy,
		Fields:      fields,
	}
	if err := s.schemaRepo.Create(ctx, schema); err != nil {
		return nil, err
	}
	return schema, nil
}

// buildField validates one field input and assigns its display order.
func buildField(in FieldInput, position int) (*domain.FieldDefinition, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: field name is required", domain.ErrValidation)
	}
	if !domain.ValidFieldTypes[in.Type] {
		return nil, fmt.Errorf("%w: unknown field type %q", domain.ErrValidation, in.Type)
	}
	if in.Type == domain.FieldTypeDropdown && len(in.Options) == 0 {
		return nil, fmt.Errorf("%w: dropdown field %q needs options", domain.ErrValidation, in.Name)
	}
	if in.Type != domain.FieldTypeDropdown && len(in.Options) > 0 {
		return nil, fmt.Errorf("%w: field %q of type %s cannot have options", domain.ErrValidation, in.Name, in.Type)
	}

	label := in.Label
	if label == "" {
		label = in.Name
	}
	order := position
	if in.DisplayOrder != nil {
		order = *in.DisplayOrder
	}

	return &domain.FieldDefinition{
		ID:           uuid.New(),
		Name:         in.Name,
		Label:        label,
		Type:         in.Type,
		Required:     in.Required,
		Options:      in.Options,
		DisplayOrder: order,
	}, nil
}

func (s *schemaService) GetByID(ctx context.Context, tenantID, schemaID uuid.UUID) (*domain.Schema, error) {
	return s.schemaRepo.GetByID(ctx, tenantID, schemaID)
}

func (s *schemaService) List(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]domain.Schema, int, error) {
	return s.schemaRepo.ListByTenant(ctx, tenantID, offset, limit)
}

func (s *schemaService) UpdateMeta(ctx context.Context, input SchemaUpdateInput) (*domain.Schema, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: schema name is required", domain.ErrValidation)
	}
	schema, err := s.schemaRepo.GetByID(ctx, input.TenantID, input.SchemaID)
	if err != nil {
		return nil, err
	}
	// A rename is a versioned change, same as a field edit; a description
	// touch-up is not.
	if schema.Name != input.Name {
		schema.Version++
	}
	schema.Name = input.Name
	schema.Description = input.Description
	if err := s.schemaRepo.UpdateMeta(ctx, schema); err != nil {
		return nil, err
	}
	return schema, nil
}

func (s *schemaService) Delete(ctx context.Context, tenantID, schemaID uuid.UUID) error {
	count, err := s.docRepo.CountBySchema(ctx, tenantID, schemaID)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d documents reference it", domain.ErrSchemaInUse, count)
	}
	return s.schemaRepo.Delete(ctx, tenantID, schemaID)
}

func (s *schemaService) AddField(ctx context.Context, tenantID, schemaID uuid.UUID, input FieldInput) (*domain.Schema, error) {
	schema, err := s.schemaRepo.GetByID(ctx, tenantID, schemaID)
	if err != nil {
		return nil, err
	}

	field, err := buildField(input, len(schema.Fields))
	if err != nil {
		return nil, err
	}
	for _, existing := range schema.Fields {
		if existing.Name == field.Name {
			return nil, fmt.Errorf("%w: %q", domain.ErrDuplicateFieldName, field.Name)
		}
	}

	// Splice at the requested position, clamped to the current range.
	if field.DisplayOrder < 0 {
		field.DisplayOrder = 0
	}
	if field.DisplayOrder > len(schema.Fields) {
		field.DisplayOrder = len(schema.Fields)
	}

	field.SchemaID = schemaID
	if err := s.schemaRepo.AddField(ctx, tenantID, field); err != nil {
		return nil, err
	}
	return s.schemaRepo.GetByID(ctx, tenantID, schemaID)
}

func (s *schemaService) RemoveField(ctx context.Context, tenantID, schemaID, fieldID uuid.UUID) (*domain.Schema, error) {
	if err := s.schemaRepo.RemoveField(ctx, tenantID, schemaID, fieldID); err != nil {
		return nil, err
	}
	return s.schemaRepo.GetByID(ctx, tenantID, schemaID)
}
