package protection

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Schema describes a set of named parameters as a cty object type.
type Schema struct {
	Type cty.Type
}

// EmptySchema accepts no parameters.
func EmptySchema() Schema {
	return Schema{Type: cty.EmptyObject}
}

// ObjectSchema builds a schema from attribute types. Attributes listed in
// optional may be omitted.
func ObjectSchema(attrs map[string]cty.Type, optional ...string) Schema {
	if len(optional) == 0 {
		return Schema{Type: cty.Object(attrs)}
	}
	return Schema{Type: cty.ObjectWithOptionalAttrs(attrs, optional)}
}

// IsEmpty reports whether the schema has no attributes.
func (s Schema) IsEmpty() bool {
	return s.Type == cty.NilType || (s.Type.IsObjectType() && len(s.Type.AttributeTypes()) == 0)
}

// Attributes returns attribute names mapped to their friendly type names.
func (s Schema) Attributes() map[string]string {
	out := make(map[string]string)
	if s.IsEmpty() {
		return out
	}
	for name, t := range s.Type.AttributeTypes() {
		out[name] = t.FriendlyName()
	}
	return out
}

// Validate converts params into a value of the schema type. String values
// are converted to the declared attribute types; unknown or missing
// required attributes are errors.
func (s Schema) Validate(params map[string]string) (cty.Value, error) {
	if s.IsEmpty() {
		if len(params) > 0 {
			return cty.NilVal, fmt.Errorf("no parameters are accepted, got %d", len(params))
		}
		return cty.EmptyObjectVal, nil
	}

	attrs := s.Type.AttributeTypes()
	vals := make(map[string]cty.Value, len(params))
	for name, v := range params {
		if _, ok := attrs[name]; !ok {
			return cty.NilVal, fmt.Errorf("unsupported parameter '%s'", name)
		}
		vals[name] = cty.StringVal(v)
	}

	out, err := convert.Convert(cty.ObjectVal(vals), s.Type)
	if err != nil {
		return cty.NilVal, fmt.Errorf("invalid parameters: %w", err)
	}
	return out, nil
}
