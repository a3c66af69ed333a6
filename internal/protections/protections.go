// Package protections provides the built-in protection plugins.
package protections

import (
	"github.com/specialistvlad/protectgrid/internal/protection"
	"github.com/specialistvlad/protectgrid/internal/resource"
)

// Register adds every built-in plugin to t.
func Register(t *protection.PluginTable) {
	t.Register(ResourceMetadataName, func() protection.Plugin { return NewResourceMetadata() })
	t.Register(NoopName, func() protection.Plugin { return NewNoop() })
}

// builtinTypes are the resource types the built-in plugins handle.
var builtinTypes = []string{
	resource.ProjectType,
	resource.ServerType,
	resource.VolumeType,
	resource.ImageType,
}
