// Package protectables provides the discovery plugins for the built-in
// resource types.
package protectables

import (
	"github.com/specialistvlad/protectgrid/internal/clients"
	"github.com/specialistvlad/protectgrid/internal/protectable"
)

// Register adds every built-in discovery plugin to r.
func Register(r *protectable.Registry, c clients.Set) {
	r.Register(NewProjectPlugin(c.Projects))
	r.Register(NewServerPlugin(c.Servers))
	r.Register(NewVolumePlugin(c.Volumes, c.Servers))
	r.Register(NewImagePlugin(c.Images, c.Servers))
}
