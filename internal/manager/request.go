package manager

import (
	"errors"
	"fmt"
	"os"

	"github.com/specialistvlad/protectgrid/internal/protection"
	"github.com/specialistvlad/protectgrid/internal/resource"
	"gopkg.in/yaml.v3"
)

// Plan is a protection plan: the seed resources to protect with one
// provider.
//
//	id: plan-1
//	name: nightly
//	provider_id: infra
//	resources:
//	  - {type: OS::Nova::Server, id: s1, name: web}
//	parameters:
//	  OS::Nova::Server:
//	    note: nightly
type Plan struct {
	ID         string                `yaml:"id"`
	Name       string                `yaml:"name"`
	ProviderID string                `yaml:"provider_id"`
	Resources  []resource.Resource   `yaml:"resources"`
	Parameters protection.Parameters `yaml:"parameters"`
}

// Validate checks that the plan names a provider and at least one valid
// resource.
func (p Plan) Validate() error {
	if p.ProviderID == "" {
		return errors.New("plan has no provider_id")
	}
	if len(p.Resources) == 0 {
		return errors.New("plan has no resources")
	}
	for _, r := range p.Resources {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("plan resource: %w", err)
		}
	}
	return nil
}

// RestoreRequest asks to restore one checkpoint.
type RestoreRequest struct {
	ProviderID   string                `yaml:"provider_id"`
	CheckpointID string                `yaml:"checkpoint_id"`
	Parameters   protection.Parameters `yaml:"parameters"`
}

// Validate checks the request names its checkpoint.
func (r RestoreRequest) Validate() error {
	if r.ProviderID == "" {
		return errors.New("restore has no provider_id")
	}
	if r.CheckpointID == "" {
		return errors.New("restore has no checkpoint_id")
	}
	return nil
}

// LoadPlan reads a plan from a YAML file.
func LoadPlan(path string) (Plan, error) {
	var p Plan
	if err := loadYAML(path, "plan", &p); err != nil {
		return Plan{}, err
	}
	return p, p.Validate()
}

// LoadRestoreRequest reads a restore request from a YAML file.
func LoadRestoreRequest(path string) (RestoreRequest, error) {
	var r RestoreRequest
	if err := loadYAML(path, "restore", &r); err != nil {
		return RestoreRequest{}, err
	}
	return r, r.Validate()
}

func loadYAML(path, kind string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s file '%s': %w", kind, path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s file '%s': %w", kind, path, err)
	}
	return nil
}
