package protection

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/protectgrid/internal/bank"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// providerFile is the root of a provider config file.
type providerFile struct {
	Provider *providerBlock `hcl:"provider,block"`
	Remain   hcl.Body       `hcl:",remain"`
}

type providerBlock struct {
	ID          string         `hcl:"id"`
	Name        string         `hcl:"name,optional"`
	Description string         `hcl:"description,optional"`
	Bank        string         `hcl:"bank,optional"`
	Plugins     []string       `hcl:"plugin,optional"`
	BankOptions hcl.Expression `hcl:"bank_options,optional"`
}

// LoadProviderConfig reads one provider definition from an HCL file.
//
//	provider {
//	  id           = "cf56bd3e-97a7-4078-b6d5-f36246333fd9"
//	  name         = "OS Infra Provider"
//	  bank         = "local"
//	  plugin       = ["resource-metadata"]
//	  bank_options = { root = "/var/lib/protectgrid/bank" }
//	}
func LoadProviderConfig(path string) (Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse provider file %s: %w", path, diags)
	}
	return decodeProviderConfig(path, file.Body)
}

// ParseProviderConfig reads one provider definition from HCL source.
func ParseProviderConfig(filename string, src []byte) (Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to parse provider file %s: %w", filename, diags)
	}
	return decodeProviderConfig(filename, file.Body)
}

func decodeProviderConfig(filename string, body hcl.Body) (Config, error) {
	var root providerFile
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return Config{}, fmt.Errorf("failed to decode provider file %s: %w", filename, diags)
	}
	if root.Provider == nil {
		return Config{}, fmt.Errorf("provider file %s has no provider block", filename)
	}

	block := root.Provider
	opts, err := decodeBankOptions(block.BankOptions)
	if err != nil {
		return Config{}, fmt.Errorf("provider file %s: %w", filename, err)
	}
	return Config{
		ID:          block.ID,
		Name:        block.Name,
		Description: block.Description,
		Bank:        block.Bank,
		Plugins:     block.Plugins,
		BankOptions: opts,
	}, nil
}

// decodeBankOptions evaluates bank_options as a map of strings. Numbers and
// bools are converted to their string form.
func decodeBankOptions(expr hcl.Expression) (bank.Options, error) {
	opts := bank.Options{}
	if expr == nil {
		return opts, nil
	}
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid bank_options: %w", diags)
	}
	if val.IsNull() {
		return opts, nil
	}
	val, err := convert.Convert(val, cty.Map(cty.String))
	if err != nil {
		return nil, fmt.Errorf("bank_options must be a map of strings: %w", err)
	}
	for k, v := range val.AsValueMap() {
		if v.IsNull() {
			continue
		}
		opts[k] = v.AsString()
	}
	return opts, nil
}
