// Package protectable discovers protectable resources and the structural
// dependencies between them.
package protectable

import (
	"context"

	"github.com/specialistvlad/protectgrid/internal/resource"
)

// Plugin discovers resources of one type.
type Plugin interface {
	// ResourceType is the type this plugin discovers.
	ResourceType() string
	// ParentTypes lists the types whose resources can have resources of
	// this type as dependents.
	ParentTypes() []string
	// ListResources returns every resource of this type.
	ListResources(ctx context.Context) ([]resource.Resource, error)
	// ShowResource returns the resource with the given id.
	ShowResource(ctx context.Context, id string) (resource.Resource, error)
	// DependentResources returns the resources of this type that depend on
	// parent. Parents of a type not in ParentTypes yield nothing.
	DependentResources(ctx context.Context, parent resource.Resource) ([]resource.Resource, error)
}

// Type describes a protectable resource type.
type Type struct {
	Name           string   `json:"name" yaml:"name"`
	DependentTypes []string `json:"dependent_types" yaml:"dependent_types"`
}
