package protections

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/specialistvlad/protectgrid/internal/bank"
	"github.com/specialistvlad/protectgrid/internal/ctxlog"
	"github.com/specialistvlad/protectgrid/internal/protection"
	"github.com/specialistvlad/protectgrid/internal/resource"
	"github.com/specialistvlad/protectgrid/internal/workflow"
	"github.com/zclconf/go-cty/cty"
)

// ResourceMetadataName is the config identifier of the metadata plugin.
const ResourceMetadataName = "resource-metadata"

// metadataObject is the bank key, relative to a resource section.
const metadataObject = "metadata"

// Record is what the metadata plugin saves for each protected resource.
type Record struct {
	Resource    resource.Resource `json:"resource"`
	Note        string            `json:"note,omitempty"`
	ProtectedAt time.Time         `json:"protected_at"`
}

// ResourceMetadata saves the identity of every protected resource into the
// checkpoint and replays it on restore. Dependents are handled before their
// parents on protect and restore, and after them on delete.
type ResourceMetadata struct {
	now func() time.Time
}

func NewResourceMetadata() *ResourceMetadata {
	return &ResourceMetadata{now: func() time.Time { return time.Now().UTC() }}
}

func (p *ResourceMetadata) Name() string {
	return ResourceMetadataName
}

func (p *ResourceMetadata) SupportedTypes() []string {
	return builtinTypes
}

func (p *ResourceMetadata) OptionsSchema(string) (protection.Schema, bool) {
	return protection.ObjectSchema(map[string]cty.Type{"note": cty.String}, "note"), true
}

func (p *ResourceMetadata) RestoreSchema(string) (protection.Schema, bool) {
	return protection.ObjectSchema(map[string]cty.Type{"name_prefix": cty.String}, "name_prefix"), true
}

func (p *ResourceMetadata) SavedInfoSchema(string) (protection.Schema, bool) {
	return protection.ObjectSchema(map[string]cty.Type{"protected_at": cty.String}), true
}

func (p *ResourceMetadata) ContributeTask(ctx context.Context, c *protection.ResourceGraphContext, r resource.Resource) (string, error) {
	var run workflow.TaskFunc
	switch c.Operation {
	case protection.OperationProtect:
		run = p.protectTask(c, r)
	case protection.OperationRestore:
		run = p.restoreTask(c, r)
	case protection.OperationDelete:
		run = p.deleteTask(c, r)
	default:
		return "", fmt.Errorf("unsupported operation '%s'", c.Operation)
	}
	id := protection.TaskName(c.Operation, r.Key())
	if err := c.Engine.AddTask(c.Flow, workflow.Task{ID: id, Run: run}); err != nil {
		return "", err
	}
	return id, nil
}

func (p *ResourceMetadata) WireDependency(c *protection.ResourceGraphContext, parent, child resource.Key) error {
	if c.Operation == protection.OperationDelete {
		return protection.WireParentFirst(c, parent, child)
	}
	return protection.WireChildFirst(c, parent, child)
}

func (p *ResourceMetadata) protectTask(c *protection.ResourceGraphContext, r resource.Resource) workflow.TaskFunc {
	section := c.ResourceSection(r.Key())
	params := c.Parameters.For(r.Key())
	return func(ctx context.Context) error {
		record := Record{Resource: r, Note: params["note"], ProtectedAt: p.now()}
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		if err := section.UpdateObject(ctx, metadataObject, data); err != nil {
			return fmt.Errorf("failed to save metadata of %s: %w", r.Key(), err)
		}
		ctxlog.FromContext(ctx).Debug("Resource metadata saved.", "resource", r.Key())
		return nil
	}
}

func (p *ResourceMetadata) restoreTask(c *protection.ResourceGraphContext, r resource.Resource) workflow.TaskFunc {
	section := c.ResourceSection(r.Key())
	params := c.Parameters.For(r.Key())
	template := c.Template
	return func(ctx context.Context) error {
		record, err := ReadRecord(ctx, section)
		if err != nil {
			return fmt.Errorf("failed to restore %s: %w", r.Key(), err)
		}
		restored := resource.New(record.Resource.Type, record.Resource.ID, params["name_prefix"]+record.Resource.Name)
		template.Put(r.Key(), restored)
		ctxlog.FromContext(ctx).Debug("Resource restored.", "resource", r.Key(), "name", restored.Name)
		return nil
	}
}

func (p *ResourceMetadata) deleteTask(c *protection.ResourceGraphContext, r resource.Resource) workflow.TaskFunc {
	section := c.ResourceSection(r.Key())
	return func(ctx context.Context) error {
		return section.DeleteObject(ctx, metadataObject)
	}
}

// ReadRecord loads the record saved in a resource section.
func ReadRecord(ctx context.Context, section *bank.Bank) (Record, error) {
	var record Record
	data, err := section.GetObject(ctx, metadataObject)
	if err != nil {
		if errors.Is(err, bank.ErrObjectNotFound) {
			return record, fmt.Errorf("no saved metadata: %w", err)
		}
		return record, err
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("failed to decode saved metadata: %w", err)
	}
	return record, nil
}
