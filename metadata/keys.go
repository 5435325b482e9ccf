// Package metadata defines the vocabulary that describes modules and injectables,
// the tokens dependencies are requested by, and the scanner that discovers the
// methods a provider exposes.
package metadata

// Key names one piece of declared metadata. The set of keys is closed: every
// reader and producer refers to metadata through these constants only.
type Key string

// Structural keys describe what makes a module.
const (
	KeyModules      Key = "modules"
	KeyImports      Key = "imports"
	KeyProviders    Key = "providers"
	KeyExports      Key = "exports"
	KeySharedModule Key = "__sharedModule__"
	KeyGlobalModule Key = "__globalModule__"
)

// Dependency keys describe what an injectable needs.
const (
	KeyParamTypes           Key = "design:paramtypes"
	KeySelfDeclaredDeps     Key = "self:paramtypes"
	KeyOptionalDeps         Key = "optional:paramtypes"
	KeyPropertyDeps         Key = "self:properties_metadata"
	KeyOptionalPropertyDeps Key = "optional:properties_metadata"
)

// Family partitions the key vocabulary.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyStructural
	FamilyDependency
)

func (f Family) String() string {
	switch f {
	case FamilyStructural:
		return "structural"
	case FamilyDependency:
		return "dependency"
	default:
		return "unknown"
	}
}

var (
	structuralKeys = []Key{
		KeyModules, KeyImports, KeyProviders, KeyExports, KeySharedModule, KeyGlobalModule,
	}
	dependencyKeys = []Key{
		KeyParamTypes, KeySelfDeclaredDeps, KeyOptionalDeps, KeyPropertyDeps, KeyOptionalPropertyDeps,
	}
)

// StructuralKeys returns the module-describing keys.
func StructuralKeys() []Key {
	return append([]Key(nil), structuralKeys...)
}

// DependencyKeys returns the injectable-describing keys.
func DependencyKeys() []Key {
	return append([]Key(nil), dependencyKeys...)
}

// Keys returns the whole vocabulary, structural keys first.
func Keys() []Key {
	return append(StructuralKeys(), dependencyKeys...)
}

// Family reports which family the key belongs to.
func (k Key) Family() Family {
	for _, s := range structuralKeys {
		if s == k {
			return FamilyStructural
		}
	}
	for _, d := range dependencyKeys {
		if d == k {
			return FamilyDependency
		}
	}
	return FamilyUnknown
}

// Valid reports whether k is part of the vocabulary.
func (k Key) Valid() bool {
	return k.Family() != FamilyUnknown
}

func (k Key) String() string {
	return string(k)
}

// Reader exposes declared metadata by exact key.
type Reader interface {
	Lookup(key Key) (any, bool)
}
