package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"jobline/internal/domain"
	"jobline/internal/engine/auth"
	"jobline/internal/events"
)

// PropertyOptions are parameters for registering a property.
type PropertyOptions struct {
	ID             string
	OwnerID        string
	Address        string
	RegistryID     string
	YearBuilt      *int
	FloorArea      *float64
	Type           string
	EnergyGrade    string
	EstimatedValue *float64
}

// CreateProperty registers a property for the acting owner.
func (e Engine) CreateProperty(ctx context.Context, actor auth.Actor, opts PropertyOptions) (domain.Property, error) {
	if opts.OwnerID == "" {
		opts.OwnerID = actor.ID
	}
	if err := auth.CanCreateProperty(actor, opts.OwnerID); err != nil {
		return domain.Property{}, err
	}
	opts.Address = strings.TrimSpace(opts.Address)
	if opts.Address == "" {
		return domain.Property{}, errors.New("address is required")
	}
	if opts.EstimatedValue != nil && *opts.EstimatedValue < 0 {
		return domain.Property{}, errors.New("estimated value must be >= 0")
	}
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	p := domain.Property{
		ID:             opts.ID,
		OwnerID:        opts.OwnerID,
		Address:        opts.Address,
		RegistryID:     opts.RegistryID,
		YearBuilt:      opts.YearBuilt,
		FloorArea:      opts.FloorArea,
		Type:           opts.Type,
		EnergyGrade:    opts.EnergyGrade,
		EstimatedValue: opts.EstimatedValue,
		CreatedAt:      e.timestamp(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Property{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertProperty(ctx, tx, p); err != nil {
		return domain.Property{}, fmt.Errorf("insert property: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.PropertyCreated, "property", p.ID, actor.ID, events.EventPayload{"address": p.Address}); err != nil {
		return domain.Property{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Property{}, err
	}
	return p, nil
}

// GetProperty returns a property if actor may see it.
func (e Engine) GetProperty(ctx context.Context, actor auth.Actor, id string) (domain.Property, error) {
	p, err := e.Repo.GetProperty(ctx, id)
	if err != nil {
		return domain.Property{}, fmt.Errorf("property %s: %w", id, err)
	}
	if !auth.CanViewProperty(actor, p) {
		return domain.Property{}, auth.ForbiddenError{Action: auth.ActionPropertyGet, Role: actor.Role}
	}
	return p, nil
}

// ListProperties returns the properties actor may see.
func (e Engine) ListProperties(ctx context.Context, actor auth.Actor) ([]domain.Property, error) {
	switch actor.Role {
	case auth.RoleOwner:
		return e.Repo.ListProperties(ctx, actor.ID)
	case auth.RoleAdmin:
		return e.Repo.ListProperties(ctx, "")
	case auth.RoleProfessional, auth.RoleNone:
		return []domain.Property{}, nil
	default:
		return []domain.Property{}, nil
	}
}
