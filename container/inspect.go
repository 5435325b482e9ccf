package container

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

// ModuleInfo describes a module of a built graph.
type ModuleInfo struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Global    bool           `json:"global"`
	Shared    bool           `json:"shared"`
	Imports   []string       `json:"imports,omitempty"`
	Exports   []string       `json:"exports,omitempty"`
	Providers []ProviderInfo `json:"providers"`
}

// ProviderInfo describes a provider binding.
type ProviderInfo struct {
	Token        string   `json:"token"`
	Kind         string   `json:"kind"`
	State        string   `json:"state"`
	Type         string   `json:"type,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Optional     []int    `json:"optional,omitempty"`
	Properties   []string `json:"properties,omitempty"`
}

// Inspect returns diagnostic information about every module of the graph.
func (g *Graph) Inspect() []ModuleInfo {
	infos := make([]ModuleInfo, 0, len(g.modules))
	for _, m := range g.modules {
		info := ModuleInfo{
			ID:        m.ID(),
			Name:      m.name,
			Global:    m.global,
			Shared:    m.shared,
			Providers: make([]ProviderInfo, 0, len(m.order)),
		}
		for _, dep := range m.imports {
			info.Imports = append(info.Imports, dep.name)
		}
		for _, tok := range m.exports {
			info.Exports = append(info.Exports, tok.String())
		}
		for _, dep := range m.reexports {
			info.Exports = append(info.Exports, "module:"+dep.name)
		}
		for _, tok := range m.order {
			info.Providers = append(info.Providers, inspectBinding(m.bindings[tok]))
		}
		infos = append(infos, info)
	}
	return infos
}

func inspectBinding(b *binding) ProviderInfo {
	deps := b.provider.Dependencies()
	info := ProviderInfo{
		Token: b.label(),
		Kind:  b.provider.Kind().String(),
		State: b.currentState().String(),
	}
	if inst, done, _ := b.settled(); done && inst != nil {
		info.Type = fmt.Sprintf("%T", inst)
	}
	for i := range deps.ParamTypes {
		info.Dependencies = append(info.Dependencies, deps.EffectiveToken(i).String())
		if deps.IsOptional(i) {
			info.Optional = append(info.Optional, i)
		}
	}
	for _, p := range deps.Properties {
		info.Properties = append(info.Properties, p.Name+"="+p.Token.String())
	}
	return info
}

// Dump writes Inspect as indented JSON.
func (g *Graph) Dump(w io.Writer) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g.Inspect())
}
