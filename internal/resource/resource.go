package resource

import (
	"fmt"
	"strings"
)

// Well-known resource types handled by the bundled plugins.
const (
	ProjectType = "OS::Keystone::Project"
	ServerType  = "OS::Nova::Server"
	VolumeType  = "OS::Cinder::Volume"
	ImageType   = "OS::Glance::Image"
)

// Key is the identity of a resource inside a graph or a checkpoint.
type Key struct {
	Type string `json:"type" msgpack:"type" yaml:"type"`
	ID   string `json:"id" msgpack:"id" yaml:"id"`
}

// String renders the key as "type#id".
func (k Key) String() string {
	return k.Type + "#" + k.ID
}

// ParseKey is the inverse of Key.String. Types never contain '#', so the
// key splits on the first one and the id may contain more.
func ParseKey(s string) (Key, error) {
	i := strings.Index(s, "#")
	if i <= 0 || i == len(s)-1 {
		return Key{}, fmt.Errorf("invalid resource key %q: expected 'type#id'", s)
	}
	return Key{Type: s[:i], ID: s[i+1:]}, nil
}

// Resource is a typed, identified cloud object.
type Resource struct {
	Type string `json:"type" msgpack:"type" yaml:"type"`
	ID   string `json:"id" msgpack:"id" yaml:"id"`
	Name string `json:"name" msgpack:"name" yaml:"name"`
}

// New creates a resource value.
func New(resourceType, id, name string) Resource {
	return Resource{Type: resourceType, ID: id, Name: name}
}

// Key returns the identity of the resource.
func (r Resource) Key() Key {
	return Key{Type: r.Type, ID: r.ID}
}

// Validate reports whether the resource carries a usable identity.
func (r Resource) Validate() error {
	if r.Type == "" {
		return fmt.Errorf("resource %q has an empty type", r.ID)
	}
	if r.ID == "" {
		return fmt.Errorf("resource of type %q has an empty id", r.Type)
	}
	return nil
}

func (r Resource) String() string {
	if r.Name == "" {
		return r.Key().String()
	}
	return fmt.Sprintf("%s (%s)", r.Key(), r.Name)
}
