package protectables

import (
	"context"

	"github.com/specialistvlad/protectgrid/internal/clients"
	"github.com/specialistvlad/protectgrid/internal/protectable"
	"github.com/specialistvlad/protectgrid/internal/resource"
)

// VolumePlugin discovers volumes. A server's dependents are its attached
// volumes; a project's dependents are all volumes it owns.
type VolumePlugin struct {
	volumes clients.VolumeClient
	servers clients.ServerClient
}

func NewVolumePlugin(volumes clients.VolumeClient, servers clients.ServerClient) *VolumePlugin {
	return &VolumePlugin{volumes: volumes, servers: servers}
}

func (p *VolumePlugin) ResourceType() string {
	return resource.VolumeType
}

func (p *VolumePlugin) ParentTypes() []string {
	return []string{resource.ServerType, resource.ProjectType}
}

func (p *VolumePlugin) ListResources(ctx context.Context) ([]resource.Resource, error) {
	return p.byProject(ctx, "")
}

func (p *VolumePlugin) byProject(ctx context.Context, projectID string) ([]resource.Resource, error) {
	volumes, err := p.volumes.ListVolumes(ctx, projectID)
	if err != nil {
		return nil, protectable.NewListFailed(resource.VolumeType, err)
	}
	out := make([]resource.Resource, 0, len(volumes))
	for _, v := range volumes {
		out = append(out, resource.New(resource.VolumeType, v.ID, v.Name))
	}
	return out, nil
}

func (p *VolumePlugin) byServer(ctx context.Context, serverID string) ([]resource.Resource, error) {
	server, err := p.servers.GetServer(ctx, serverID)
	if err != nil {
		return nil, protectable.NewListFailed(resource.VolumeType, err)
	}
	out := make([]resource.Resource, 0, len(server.VolumeIDs))
	for _, id := range server.VolumeIDs {
		v, err := p.volumes.GetVolume(ctx, id)
		if err != nil {
			return nil, protectable.NewListFailed(resource.VolumeType, err)
		}
		out = append(out, resource.New(resource.VolumeType, v.ID, v.Name))
	}
	return out, nil
}

func (p *VolumePlugin) ShowResource(ctx context.Context, id string) (resource.Resource, error) {
	v, err := p.volumes.GetVolume(ctx, id)
	if err != nil {
		return resource.Resource{}, protectable.NewListFailed(resource.VolumeType, err)
	}
	return resource.New(resource.VolumeType, v.ID, v.Name), nil
}

func (p *VolumePlugin) DependentResources(ctx context.Context, parent resource.Resource) ([]resource.Resource, error) {
	switch parent.Type {
	case resource.ServerType:
		return p.byServer(ctx, parent.ID)
	case resource.ProjectType:
		return p.byProject(ctx, parent.ID)
	}
	return nil, nil
}
