package clients

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Inventory is a static, in-memory description of a cloud.
//
//	projects:
//	  - id: p1
//	    name: demo
//	    servers:
//	      - {id: s1, name: web, image: i1, volumes: [v1]}
//	    volumes:
//	      - {id: v1, name: data}
//	    images:
//	      - {id: i1, name: ubuntu}
type Inventory struct {
	projects []Project
	servers  []Server
	volumes  []Volume
	images   []Image
}

type inventoryDoc struct {
	Projects []struct {
		ID      string   `yaml:"id"`
		Name    string   `yaml:"name"`
		Servers []Server `yaml:"servers"`
		Volumes []Volume `yaml:"volumes"`
		Images  []Image  `yaml:"images"`
	} `yaml:"projects"`
}

// LoadInventory reads an inventory from a YAML file.
func LoadInventory(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory file '%s': %w", path, err)
	}
	inv, err := ParseInventory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse inventory file '%s': %w", path, err)
	}
	return inv, nil
}

// ParseInventory decodes an inventory document and checks that ids are
// unique and references resolve.
func ParseInventory(data []byte) (*Inventory, error) {
	var doc inventoryDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	inv := &Inventory{}
	seen := make(map[string]bool)
	unique := func(kind, id string) error {
		if id == "" {
			return fmt.Errorf("%s without id", kind)
		}
		if seen[kind+"/"+id] {
			return fmt.Errorf("duplicate %s id '%s'", kind, id)
		}
		seen[kind+"/"+id] = true
		return nil
	}

	for _, p := range doc.Projects {
		if err := unique("project", p.ID); err != nil {
			return nil, err
		}
		inv.projects = append(inv.projects, Project{ID: p.ID, Name: p.Name})
		for _, s := range p.Servers {
			if err := unique("server", s.ID); err != nil {
				return nil, err
			}
			s.ProjectID = p.ID
			inv.servers = append(inv.servers, s)
		}
		for _, v := range p.Volumes {
			if err := unique("volume", v.ID); err != nil {
				return nil, err
			}
			v.ProjectID = p.ID
			inv.volumes = append(inv.volumes, v)
		}
		for _, i := range p.Images {
			if err := unique("image", i.ID); err != nil {
				return nil, err
			}
			i.OwnerID = p.ID
			inv.images = append(inv.images, i)
		}
	}

	for _, s := range inv.servers {
		if s.ImageID != "" && !seen["image/"+s.ImageID] {
			return nil, fmt.Errorf("server '%s' references unknown image '%s'", s.ID, s.ImageID)
		}
		for _, v := range s.VolumeIDs {
			if !seen["volume/"+v] {
				return nil, fmt.Errorf("server '%s' references unknown volume '%s'", s.ID, v)
			}
		}
	}
	return inv, nil
}

func (inv *Inventory) ListProjects(ctx context.Context) ([]Project, error) {
	return append([]Project(nil), inv.projects...), nil
}

func (inv *Inventory) GetProject(ctx context.Context, id string) (Project, error) {
	for _, p := range inv.projects {
		if p.ID == id {
			return p, nil
		}
	}
	return Project{}, fmt.Errorf("%w: project %s", ErrNotFound, id)
}

func (inv *Inventory) ListServers(ctx context.Context, projectID string) ([]Server, error) {
	var out []Server
	for _, s := range inv.servers {
		if projectID == "" || s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (inv *Inventory) GetServer(ctx context.Context, id string) (Server, error) {
	for _, s := range inv.servers {
		if s.ID == id {
			return s, nil
		}
	}
	return Server{}, fmt.Errorf("%w: server %s", ErrNotFound, id)
}

func (inv *Inventory) ListVolumes(ctx context.Context, projectID string) ([]Volume, error) {
	var out []Volume
	for _, v := range inv.volumes {
		if projectID == "" || v.ProjectID == projectID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (inv *Inventory) GetVolume(ctx context.Context, id string) (Volume, error) {
	for _, v := range inv.volumes {
		if v.ID == id {
			return v, nil
		}
	}
	return Volume{}, fmt.Errorf("%w: volume %s", ErrNotFound, id)
}

func (inv *Inventory) ListImages(ctx context.Context, ownerID string) ([]Image, error) {
	var out []Image
	for _, i := range inv.images {
		if ownerID == "" || i.OwnerID == ownerID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (inv *Inventory) GetImage(ctx context.Context, id string) (Image, error) {
	for _, i := range inv.images {
		if i.ID == id {
			return i, nil
		}
	}
	return Image{}, fmt.Errorf("%w: image %s", ErrNotFound, id)
}
