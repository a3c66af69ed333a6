package cli

import (
	"io"
	"time"

	"github.com/specialistvlad/protectgrid/internal/checkpoint"
	"github.com/specialistvlad/protectgrid/internal/protection"
	"github.com/specialistvlad/protectgrid/internal/resource"
	"gopkg.in/yaml.v3"
)

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

type edgeView struct {
	Parent string `yaml:"parent"`
	Child  string `yaml:"child"`
}

type checkpointView struct {
	ID         string              `yaml:"id"`
	ProviderID string              `yaml:"provider_id"`
	Status     checkpoint.Status   `yaml:"status"`
	PlanID     string              `yaml:"plan_id,omitempty"`
	PlanName   string              `yaml:"plan_name,omitempty"`
	ExtraInfo  map[string]string   `yaml:"extra_info,omitempty"`
	CreatedAt  time.Time           `yaml:"created_at"`
	UpdatedAt  time.Time           `yaml:"updated_at"`
	Resources  []resource.Resource `yaml:"resources,omitempty"`
	Edges      []edgeView          `yaml:"edges,omitempty"`
}

func newCheckpointView(cp *checkpoint.Checkpoint) checkpointView {
	v := checkpointView{
		ID:         cp.ID,
		ProviderID: cp.ProviderID,
		Status:     cp.Status,
		PlanID:     cp.Plan.ID,
		PlanName:   cp.Plan.Name,
		ExtraInfo:  cp.ExtraInfo,
		CreatedAt:  cp.CreatedAt,
		UpdatedAt:  cp.UpdatedAt,
	}
	if g := cp.ResourceGraph; g != nil {
		for _, k := range g.Keys() {
			r, _ := g.Resource(k)
			v.Resources = append(v.Resources, r)
		}
		for _, e := range g.Edges() {
			v.Edges = append(v.Edges, edgeView{Parent: e.Parent.String(), Child: e.Child.String()})
		}
	}
	return v
}

type restoredView struct {
	Original string            `yaml:"original"`
	Restored resource.Resource `yaml:"restored"`
}

func newRestoreView(tpl *protection.RestoreTemplate) []restoredView {
	out := make([]restoredView, 0)
	for _, k := range tpl.Keys() {
		r, _ := tpl.Get(k)
		out = append(out, restoredView{Original: k.String(), Restored: r})
	}
	return out
}

type schemaView struct {
	Options   map[string]string `yaml:"options,omitempty"`
	Restore   map[string]string `yaml:"restore,omitempty"`
	SavedInfo map[string]string `yaml:"saved_info,omitempty"`
}

type providerView struct {
	ID             string                `yaml:"id"`
	Name           string                `yaml:"name,omitempty"`
	Description    string                `yaml:"description,omitempty"`
	Bank           string                `yaml:"bank"`
	Plugins        []string              `yaml:"plugins"`
	SupportedTypes []string              `yaml:"supported_types"`
	Schemas        map[string]schemaView `yaml:"schemas,omitempty"`
}

func newProviderView(p *protection.PluggableProtectionProvider, withSchemas bool) providerView {
	cfg := p.Config()
	v := providerView{
		ID:             cfg.ID,
		Name:           cfg.Name,
		Description:    cfg.Description,
		Bank:           cfg.Bank,
		Plugins:        cfg.Plugins,
		SupportedTypes: p.SupportedTypes(),
	}
	if withSchemas {
		schema := p.ExtendedInfoSchema()
		v.Schemas = make(map[string]schemaView)
		for _, t := range v.SupportedTypes {
			v.Schemas[t] = schemaView{
				Options:   schema.Options[t].Attributes(),
				Restore:   schema.Restore[t].Attributes(),
				SavedInfo: schema.SavedInfo[t].Attributes(),
			}
		}
	}
	return v
}
