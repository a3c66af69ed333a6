package protectables

import (
	"context"

	"github.com/specialistvlad/protectgrid/internal/clients"
	"github.com/specialistvlad/protectgrid/internal/protectable"
	"github.com/specialistvlad/protectgrid/internal/resource"
)

// ImagePlugin discovers images. A server's dependent is the image it booted
// from; a project's dependents are the images it owns.
type ImagePlugin struct {
	images  clients.ImageClient
	servers clients.ServerClient
}

func NewImagePlugin(images clients.ImageClient, servers clients.ServerClient) *ImagePlugin {
	return &ImagePlugin{images: images, servers: servers}
}

func (p *ImagePlugin) ResourceType() string {
	return resource.ImageType
}

func (p *ImagePlugin) ParentTypes() []string {
	return []string{resource.ServerType, resource.ProjectType}
}

func (p *ImagePlugin) ListResources(ctx context.Context) ([]resource.Resource, error) {
	return p.byOwner(ctx, "")
}

func (p *ImagePlugin) byOwner(ctx context.Context, ownerID string) ([]resource.Resource, error) {
	images, err := p.images.ListImages(ctx, ownerID)
	if err != nil {
		return nil, protectable.NewListFailed(resource.ImageType, err)
	}
	out := make([]resource.Resource, 0, len(images))
	for _, i := range images {
		out = append(out, resource.New(resource.ImageType, i.ID, i.Name))
	}
	return out, nil
}

func (p *ImagePlugin) byServer(ctx context.Context, serverID string) ([]resource.Resource, error) {
	server, err := p.servers.GetServer(ctx, serverID)
	if err != nil {
		return nil, protectable.NewListFailed(resource.ImageType, err)
	}
	if server.ImageID == "" {
		return nil, nil
	}
	image, err := p.images.GetImage(ctx, server.ImageID)
	if err != nil {
		return nil, protectable.NewListFailed(resource.ImageType, err)
	}
	return []resource.Resource{resource.New(resource.ImageType, image.ID, image.Name)}, nil
}

func (p *ImagePlugin) ShowResource(ctx context.Context, id string) (resource.Resource, error) {
	image, err := p.images.GetImage(ctx, id)
	if err != nil {
		return resource.Resource{}, protectable.NewListFailed(resource.ImageType, err)
	}
	return resource.New(resource.ImageType, image.ID, image.Name), nil
}

func (p *ImagePlugin) DependentResources(ctx context.Context, parent resource.Resource) ([]resource.Resource, error) {
	switch parent.Type {
	case resource.ServerType:
		return p.byServer(ctx, parent.ID)
	case resource.ProjectType:
		return p.byOwner(ctx, parent.ID)
	}
	return nil, nil
}
