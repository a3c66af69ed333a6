package protectables

import (
	"context"

	"github.com/specialistvlad/protectgrid/internal/clients"
	"github.com/specialistvlad/protectgrid/internal/protectable"
	"github.com/specialistvlad/protectgrid/internal/resource"
)

// ServerPlugin discovers servers; a project's dependents are its servers.
type ServerPlugin struct {
	servers clients.ServerClient
}

func NewServerPlugin(servers clients.ServerClient) *ServerPlugin {
	return &ServerPlugin{servers: servers}
}

func (p *ServerPlugin) ResourceType() string {
	return resource.ServerType
}

func (p *ServerPlugin) ParentTypes() []string {
	return []string{resource.ProjectType}
}

func (p *ServerPlugin) ListResources(ctx context.Context) ([]resource.Resource, error) {
	return p.list(ctx, "")
}

func (p *ServerPlugin) list(ctx context.Context, projectID string) ([]resource.Resource, error) {
	servers, err := p.servers.ListServers(ctx, projectID)
	if err != nil {
		return nil, protectable.NewListFailed(resource.ServerType, err)
	}
	out := make([]resource.Resource, 0, len(servers))
	for _, s := range servers {
		out = append(out, resource.New(resource.ServerType, s.ID, s.Name))
	}
	return out, nil
}

func (p *ServerPlugin) ShowResource(ctx context.Context, id string) (resource.Resource, error) {
	s, err := p.servers.GetServer(ctx, id)
	if err != nil {
		return resource.Resource{}, protectable.NewListFailed(resource.ServerType, err)
	}
	return resource.New(resource.ServerType, s.ID, s.Name), nil
}

func (p *ServerPlugin) DependentResources(ctx context.Context, parent resource.Resource) ([]resource.Resource, error) {
	if parent.Type != resource.ProjectType {
		return nil, nil
	}
	return p.list(ctx, parent.ID)
}
