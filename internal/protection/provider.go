package protection

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/protectgrid/internal/bank"
	"github.com/specialistvlad/protectgrid/internal/checkpoint"
	"github.com/specialistvlad/protectgrid/internal/ctxlog"
	"github.com/specialistvlad/protectgrid/internal/graphwalker"
	"github.com/specialistvlad/protectgrid/internal/protectable"
	"github.com/specialistvlad/protectgrid/internal/resource"
	"github.com/specialistvlad/protectgrid/internal/resourcegraph"
	"github.com/specialistvlad/protectgrid/internal/workflow"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Dependencies are the process wide services providers are built from.
type Dependencies struct {
	Banks             *bank.Table
	Plugins           *PluginTable
	Protectables      *protectable.Registry
	Engine            workflow.Engine
	CheckpointOptions []checkpoint.Option
	Tracer            trace.Tracer
}

// Config is the static definition of a provider.
type Config struct {
	ID          string
	Name        string
	Description string
	Bank        string
	Plugins     []string
	BankOptions bank.Options
}

// PluggableProtectionProvider couples a bank with protection plugins.
type PluggableProtectionProvider struct {
	cfg          Config
	bankPlugin   bank.Plugin
	checkpoints  *checkpoint.Collection
	plugins      []Plugin
	typePlugins  map[string]Plugin
	schema       ExtendedInfoSchema
	protectables *protectable.Registry
	engine       workflow.Engine
	tracer       trace.Tracer
}

// NewProvider opens the provider's bank and instantiates its plugins. A
// missing or unknown bank, an unknown plugin, or two plugins claiming the
// same resource type are errors.
func NewProvider(ctx context.Context, cfg Config, deps Dependencies) (*PluggableProtectionProvider, error) {
	if cfg.ID == "" {
		return nil, fmt.Errorf("provider id is required")
	}
	if cfg.Bank == "" {
		return nil, fmt.Errorf("provider '%s': bank plugin is required", cfg.ID)
	}

	p := &PluggableProtectionProvider{
		cfg:          cfg,
		typePlugins:  make(map[string]Plugin),
		schema:       newExtendedInfoSchema(),
		protectables: deps.Protectables,
		engine:       deps.Engine,
		tracer:       deps.Tracer,
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer("github.com/specialistvlad/protectgrid/internal/protection")
	}

	for _, name := range cfg.Plugins {
		plugin, err := deps.Plugins.New(name)
		if err != nil {
			return nil, fmt.Errorf("provider '%s': %w", cfg.ID, err)
		}
		for _, t := range plugin.SupportedTypes() {
			if other, taken := p.typePlugins[t]; taken {
				return nil, fmt.Errorf("provider '%s': resource type '%s' is handled by both '%s' and '%s'", cfg.ID, t, other.Name(), plugin.Name())
			}
			p.typePlugins[t] = plugin
			p.schema.add(plugin, t)
		}
		p.plugins = append(p.plugins, plugin)
	}

	bp, err := deps.Banks.Open(ctx, cfg.Bank, cfg.BankOptions)
	if err != nil {
		return nil, fmt.Errorf("provider '%s': %w", cfg.ID, err)
	}
	p.bankPlugin = bp
	p.checkpoints = checkpoint.NewCollection(bank.New(bp, cfg.ID), cfg.ID, deps.CheckpointOptions...)

	ctxlog.FromContext(ctx).Info("Provider loaded.", "provider", cfg.ID, "bank", cfg.Bank, "plugins", cfg.Plugins)
	return p, nil
}

func (p *PluggableProtectionProvider) ID() string          { return p.cfg.ID }
func (p *PluggableProtectionProvider) Name() string        { return p.cfg.Name }
func (p *PluggableProtectionProvider) Description() string { return p.cfg.Description }
func (p *PluggableProtectionProvider) Config() Config      { return p.cfg }

// Checkpoints returns the provider's checkpoint collection.
func (p *PluggableProtectionProvider) Checkpoints() *checkpoint.Collection {
	return p.checkpoints
}

// ExtendedInfoSchema returns the schemas resolved at construction.
func (p *PluggableProtectionProvider) ExtendedInfoSchema() ExtendedInfoSchema {
	return p.schema
}

// SupportedTypes returns the resource types some plugin handles, sorted.
func (p *PluggableProtectionProvider) SupportedTypes() []string {
	types := make([]string, 0, len(p.typePlugins))
	for t := range p.typePlugins {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Close releases the bank.
func (p *PluggableProtectionProvider) Close() error {
	return p.bankPlugin.Close()
}

// FlowRequest asks for a flow.
type FlowRequest struct {
	Operation Operation
	Identity  string
	// Resources are the seeds of a protect flow.
	Resources []resource.Resource
	// CheckpointID is the checkpoint written by a protect flow, or read by
	// restore and delete flows.
	CheckpointID string
	Parameters   Parameters
}

// FlowResult is the outcome of BuildTaskFlow. StatusGetters and Graph are
// set for protect flows, Template for restore flows.
type FlowResult struct {
	Flow          workflow.Flow
	StatusGetters map[resource.Key]workflow.StatusGetter
	Graph         *resourcegraph.Graph
	Template      *RestoreTemplate
}

// BuildTaskFlow builds the flow for req. Protect flows discover their graph;
// restore and delete flows replay the graph stored in the checkpoint. Any
// discovery, plugin resolution or cycle error aborts the build.
func (p *PluggableProtectionProvider) BuildTaskFlow(ctx context.Context, req FlowRequest) (result *FlowResult, err error) {
	ctx, span := p.tracer.Start(ctx, "protection.BuildTaskFlow", trace.WithAttributes(
		attribute.String("protectgrid.provider", p.cfg.ID),
		attribute.String("protectgrid.operation", string(req.Operation)),
		attribute.String("protectgrid.checkpoint", req.CheckpointID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	ctx = ctxlog.With(ctx, "provider", p.cfg.ID, "operation", req.Operation, "checkpoint", req.CheckpointID)
	logger := ctxlog.FromContext(ctx)

	if !req.Operation.Valid() {
		return nil, fmt.Errorf("%w: unknown operation '%s'", ErrInvalidRequest, req.Operation)
	}
	if req.CheckpointID == "" {
		return nil, fmt.Errorf("%w: checkpoint id is required", ErrInvalidRequest)
	}

	var graph *resourcegraph.Graph
	switch req.Operation {
	case OperationProtect:
		if len(req.Resources) == 0 {
			return nil, fmt.Errorf("%w: no resources to protect", ErrInvalidRequest)
		}
		if err := p.validateParameters(req.Parameters, p.schema.Options); err != nil {
			return nil, err
		}
		graph, err = p.protectables.BuildGraph(ctx, req.Resources)
		if err != nil {
			return nil, err
		}
	case OperationRestore, OperationDelete:
		if req.Operation == OperationRestore {
			if err := p.validateParameters(req.Parameters, p.schema.Restore); err != nil {
				return nil, err
			}
		}
		graph, err = p.checkpoints.LoadResourceGraph(ctx, req.CheckpointID)
		if err != nil {
			if errors.Is(err, bank.ErrObjectNotFound) {
				return nil, fmt.Errorf("checkpoint %s has no resource graph: %w", req.CheckpointID, err)
			}
			return nil, err
		}
	}
	span.SetAttributes(attribute.Int("protectgrid.resources", graph.Len()))

	rgc := NewResourceGraphContext(ContextOptions{
		Identity:     req.Identity,
		Operation:    req.Operation,
		Engine:       p.engine,
		FlowName:     fmt.Sprintf("%s-%s", req.Operation, req.CheckpointID),
		Plugins:      p.typePlugins,
		Parameters:   req.Parameters,
		Checkpoints:  p.checkpoints,
		CheckpointID: req.CheckpointID,
	})
	if err := graphwalker.New(NewWalkerListener(ctx, rgc)).Walk(graph); err != nil {
		return nil, err
	}
	logger.Debug("Task flow built.", "resources", graph.Len(), "tasks", len(rgc.Flow.Tasks()))

	switch req.Operation {
	case OperationProtect:
		return &FlowResult{Flow: rgc.Flow, StatusGetters: rgc.StatusGetters(), Graph: graph}, nil
	case OperationRestore:
		return &FlowResult{Flow: rgc.Flow, Template: rgc.Template}, nil
	default:
		return &FlowResult{Flow: rgc.Flow}, nil
	}
}

// validateParameters checks every parameter set against the schema of the
// type it targets.
func (p *PluggableProtectionProvider) validateParameters(params Parameters, schemas map[string]Schema) error {
	for target, values := range params {
		resourceType := target
		if strings.Contains(target, "#") {
			key, err := resource.ParseKey(target)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
			}
			resourceType = key.Type
		}
		schema, ok := schemas[resourceType]
		if !ok {
			return fmt.Errorf("%w: parameters for unsupported resource type '%s'", ErrInvalidRequest, resourceType)
		}
		if _, err := schema.Validate(values); err != nil {
			return fmt.Errorf("%w: parameters for '%s': %v", ErrInvalidRequest, target, err)
		}
	}
	return nil
}
