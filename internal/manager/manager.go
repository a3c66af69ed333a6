package manager

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/protectgrid/internal/bank"
	"github.com/specialistvlad/protectgrid/internal/checkpoint"
	"github.com/specialistvlad/protectgrid/internal/ctxlog"
	"github.com/specialistvlad/protectgrid/internal/protectable"
	"github.com/specialistvlad/protectgrid/internal/protection"
	"github.com/specialistvlad/protectgrid/internal/resource"
	"github.com/specialistvlad/protectgrid/internal/workflow"
	"go.uber.org/multierr"
)

// ProtectionManager is the entry point of every protection operation.
type ProtectionManager struct {
	providers    *protection.ProviderRegistry
	protectables *protectable.Registry
	engine       workflow.Engine
}

// New creates a manager. engine runs the flows built by the providers.
func New(providers *protection.ProviderRegistry, protectables *protectable.Registry, engine workflow.Engine) *ProtectionManager {
	return &ProtectionManager{
		providers:    providers,
		protectables: protectables,
		engine:       engine,
	}
}

// Providers returns the provider registry.
func (m *ProtectionManager) Providers() *protection.ProviderRegistry {
	return m.providers
}

// Protect takes a checkpoint of the plan's resources. The checkpoint ends
// available when every task finished, and error otherwise. A failed run is
// not undone. The checkpoint is returned whenever it was created, also
// alongside an error.
func (m *ProtectionManager) Protect(ctx context.Context, plan Plan) (cp *checkpoint.Checkpoint, err error) {
	defer func() { observe("protect", err) }()

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	provider, err := m.providers.ShowProvider(plan.ProviderID)
	if err != nil {
		return nil, err
	}
	checkpoints := provider.Checkpoints()

	cp, err = checkpoints.Create(ctx, checkpoint.CreateOptions{
		Plan: checkpoint.Plan{ID: plan.ID, Name: plan.Name},
	})
	if err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx).With("provider", plan.ProviderID, "checkpoint", cp.ID)
	logger.Info("Protection started.", "plan", plan.ID, "resources", len(plan.Resources))

	// The checkpoint must reach a terminal status even when ctx is done.
	finalizeCtx := context.WithoutCancel(ctx)
	fail := func(cause error) (*checkpoint.Checkpoint, error) {
		final, commitErr := checkpoints.Commit(finalizeCtx, cp.ID, false)
		if commitErr != nil {
			return cp, multierr.Append(cause, commitErr)
		}
		return final, cause
	}

	res, err := provider.BuildTaskFlow(ctx, protection.FlowRequest{
		Operation:    protection.OperationProtect,
		Resources:    plan.Resources,
		CheckpointID: cp.ID,
		Parameters:   plan.Parameters,
	})
	if err != nil {
		return fail(fmt.Errorf("failed to build protection flow: %w", err))
	}
	if err := checkpoints.StoreResourceGraph(ctx, cp.ID, res.Graph); err != nil {
		return fail(err)
	}

	runErr := m.engine.Run(ctx, res.Flow)
	success := runErr == nil && allDone(res.StatusGetters)
	final, err := checkpoints.Commit(finalizeCtx, cp.ID, success)
	if err != nil {
		return cp, multierr.Append(runErr, err)
	}
	if runErr != nil {
		logger.Error("Protection failed.", "error", runErr)
		return final, fmt.Errorf("protection of checkpoint %s failed: %w", cp.ID, runErr)
	}
	if !success {
		return final, fmt.Errorf("protection of checkpoint %s did not complete", cp.ID)
	}
	logger.Info("Protection finished.", "resources", len(res.StatusGetters))
	return final, nil
}

func allDone(getters map[resource.Key]workflow.StatusGetter) bool {
	for _, get := range getters {
		if get() != workflow.StatusDone {
			return false
		}
	}
	return true
}

// Restore replays an available checkpoint and returns what was restored.
func (m *ProtectionManager) Restore(ctx context.Context, req RestoreRequest) (tpl *protection.RestoreTemplate, err error) {
	defer func() { observe("restore", err) }()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	provider, err := m.providers.ShowProvider(req.ProviderID)
	if err != nil {
		return nil, err
	}
	cp, err := provider.Checkpoints().Get(ctx, req.CheckpointID)
	if err != nil {
		return nil, err
	}
	if cp.Status != checkpoint.StatusAvailable {
		return nil, fmt.Errorf("%w: checkpoint %s is '%s', only available checkpoints can be restored", checkpoint.ErrInvalidState, cp.ID, cp.Status)
	}

	res, err := provider.BuildTaskFlow(ctx, protection.FlowRequest{
		Operation:    protection.OperationRestore,
		CheckpointID: cp.ID,
		Parameters:   req.Parameters,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build restore flow: %w", err)
	}
	if err := m.engine.Run(ctx, res.Flow); err != nil {
		return res.Template, fmt.Errorf("restore of checkpoint %s failed: %w", cp.ID, err)
	}
	ctxlog.FromContext(ctx).Info("Restore finished.", "provider", req.ProviderID, "checkpoint", cp.ID, "restored", len(res.Template.Keys()))
	return res.Template, nil
}

// DeleteCheckpoint runs the plugins' delete flow over the checkpoint's graph
// and then removes the checkpoint. A checkpoint still being protected cannot
// be deleted. A checkpoint without a stored graph is removed directly.
func (m *ProtectionManager) DeleteCheckpoint(ctx context.Context, providerID, checkpointID string) (err error) {
	defer func() { observe("delete", err) }()

	provider, err := m.providers.ShowProvider(providerID)
	if err != nil {
		return err
	}
	checkpoints := provider.Checkpoints()

	if _, err := checkpoints.UpdateStatus(ctx, checkpointID, checkpoint.StatusDeleting); err != nil {
		return err
	}

	res, err := provider.BuildTaskFlow(ctx, protection.FlowRequest{
		Operation:    protection.OperationDelete,
		CheckpointID: checkpointID,
	})
	switch {
	case errors.Is(err, bank.ErrObjectNotFound):
		ctxlog.FromContext(ctx).Debug("Checkpoint has no resource graph, skipping delete flow.", "provider", providerID, "checkpoint", checkpointID)
	case err != nil:
		return fmt.Errorf("failed to build delete flow: %w", err)
	default:
		if err := m.engine.Run(ctx, res.Flow); err != nil {
			return fmt.Errorf("delete flow of checkpoint %s failed: %w", checkpointID, err)
		}
	}
	return checkpoints.Delete(ctx, checkpointID)
}

// ListCheckpoints returns the checkpoints of a provider.
func (m *ProtectionManager) ListCheckpoints(ctx context.Context, providerID string) ([]*checkpoint.Checkpoint, error) {
	provider, err := m.providers.ShowProvider(providerID)
	if err != nil {
		return nil, err
	}
	return provider.Checkpoints().List(ctx)
}

// ShowCheckpoint returns one checkpoint with its resource graph.
func (m *ProtectionManager) ShowCheckpoint(ctx context.Context, providerID, checkpointID string) (*checkpoint.Checkpoint, error) {
	provider, err := m.providers.ShowProvider(providerID)
	if err != nil {
		return nil, err
	}
	return provider.Checkpoints().Get(ctx, checkpointID)
}

func (m *ProtectionManager) ListProtectableTypes() []string {
	return m.protectables.ListResourceTypes()
}

func (m *ProtectionManager) ShowProtectableType(resourceType string) (protectable.Type, error) {
	return m.protectables.ShowProtectableType(resourceType)
}

func (m *ProtectionManager) ListProtectableInstances(ctx context.Context, resourceType string) ([]resource.Resource, error) {
	return m.protectables.ListResources(ctx, resourceType)
}

func (m *ProtectionManager) ShowProtectableInstance(ctx context.Context, resourceType, id string) (resource.Resource, error) {
	return m.protectables.ShowResource(ctx, resourceType, id)
}

// ListProtectableDependents returns the direct dependents of one resource.
func (m *ProtectionManager) ListProtectableDependents(ctx context.Context, resourceType, id string) ([]resource.Resource, error) {
	parent, err := m.protectables.ShowResource(ctx, resourceType, id)
	if err != nil {
		return nil, err
	}
	return m.protectables.FetchDependentResources(ctx, parent)
}
