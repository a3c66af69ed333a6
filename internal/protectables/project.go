package protectables

import (
	"context"

	"github.com/specialistvlad/protectgrid/internal/clients"
	"github.com/specialistvlad/protectgrid/internal/protectable"
	"github.com/specialistvlad/protectgrid/internal/resource"
)

// ProjectPlugin discovers projects. Projects have no parents.
type ProjectPlugin struct {
	projects clients.ProjectClient
}

func NewProjectPlugin(projects clients.ProjectClient) *ProjectPlugin {
	return &ProjectPlugin{projects: projects}
}

func (p *ProjectPlugin) ResourceType() string {
	return resource.ProjectType
}

func (p *ProjectPlugin) ParentTypes() []string {
	return nil
}

func (p *ProjectPlugin) ListResources(ctx context.Context) ([]resource.Resource, error) {
	projects, err := p.projects.ListProjects(ctx)
	if err != nil {
		return nil, protectable.NewListFailed(resource.ProjectType, err)
	}
	out := make([]resource.Resource, 0, len(projects))
	for _, project := range projects {
		out = append(out, resource.New(resource.ProjectType, project.ID, project.Name))
	}
	return out, nil
}

func (p *ProjectPlugin) ShowResource(ctx context.Context, id string) (resource.Resource, error) {
	project, err := p.projects.GetProject(ctx, id)
	if err != nil {
		return resource.Resource{}, protectable.NewListFailed(resource.ProjectType, err)
	}
	return resource.New(resource.ProjectType, project.ID, project.Name), nil
}

func (p *ProjectPlugin) DependentResources(ctx context.Context, parent resource.Resource) ([]resource.Resource, error) {
	return nil, nil
}
