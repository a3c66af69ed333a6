// Package clients defines the cloud lookups discovery plugins depend on.
//
// The interfaces are deliberately narrow: discovery is read-only. The
// Inventory type implements all of them from a YAML document, which is how
// the CLI runs against an offline description of a cloud.
package clients

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get lookups for unknown ids.
var ErrNotFound = errors.New("cloud object not found")

// Project is a tenant that owns servers, volumes and images.
type Project struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Server is a compute instance.
type Server struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	ProjectID string `yaml:"-"`
	// ImageID is the image the server was booted from, if any.
	ImageID string `yaml:"image"`
	// VolumeIDs lists attached volumes in attachment order.
	VolumeIDs []string `yaml:"volumes"`
}

// Volume is a block storage volume.
type Volume struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	ProjectID string `yaml:"-"`
}

// Image is a bootable image.
type Image struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	OwnerID string `yaml:"-"`
}

type ProjectClient interface {
	ListProjects(ctx context.Context) ([]Project, error)
	GetProject(ctx context.Context, id string) (Project, error)
}

type ServerClient interface {
	// ListServers returns all servers, or only those of projectID when it is
	// not empty.
	ListServers(ctx context.Context, projectID string) ([]Server, error)
	GetServer(ctx context.Context, id string) (Server, error)
}

type VolumeClient interface {
	ListVolumes(ctx context.Context, projectID string) ([]Volume, error)
	GetVolume(ctx context.Context, id string) (Volume, error)
}

type ImageClient interface {
	ListImages(ctx context.Context, ownerID string) ([]Image, error)
	GetImage(ctx context.Context, id string) (Image, error)
}

// Set bundles the clients handed to discovery plugins.
type Set struct {
	Projects ProjectClient
	Servers  ServerClient
	Volumes  VolumeClient
	Images   ImageClient
}

// NewSet returns a Set whose clients are all served by one implementation.
func NewSet(c interface {
	ProjectClient
	ServerClient
	VolumeClient
	ImageClient
}) Set {
	return Set{Projects: c, Servers: c, Volumes: c, Images: c}
}
