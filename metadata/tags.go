package metadata

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// TagName is the struct tag that declares a property dependency:
//
//	type CatsService struct {
//	    Repo   *CatsRepository `inject:""`
//	    Config Config          `inject:"CONFIG,optional"`
//	}
//
// An empty name injects by the field's type.
const TagName = "inject"

type tagResult struct {
	deps Dependencies
	err  error
}

var tagCache sync.Map // reflect.Type -> tagResult

// PropertiesFromTags reads the property dependencies declared with struct tags
// on t (or the struct t points to). Results are cached per type.
func PropertiesFromTags(t reflect.Type) (Dependencies, error) {
	if t == nil {
		return Dependencies{}, nil
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return Dependencies{}, nil
	}

	if cached, ok := tagCache.Load(t); ok {
		r := cached.(tagResult)
		return r.deps, r.err
	}

	deps, err := parseTags(t)
	tagCache.Store(t, tagResult{deps: deps, err: err})
	return deps, err
}

func parseTags(t reflect.Type) (Dependencies, error) {
	var deps Dependencies
	for _, f := range reflect.VisibleFields(t) {
		tag, ok := f.Tag.Lookup(TagName)
		if !ok {
			continue
		}
		if !f.IsExported() {
			return Dependencies{}, fmt.Errorf("field %s.%s: inject tag on unexported field", t, f.Name)
		}

		name, opts, _ := strings.Cut(tag, ",")
		optional := false
		for _, opt := range strings.Split(opts, ",") {
			switch strings.TrimSpace(opt) {
			case "":
			case "optional":
				optional = true
			default:
				return Dependencies{}, fmt.Errorf("field %s.%s: unknown inject option %q", t, f.Name, opt)
			}
		}

		tok := TypeToken(f.Type)
		if name = strings.TrimSpace(name); name != "" {
			tok = Name(name)
		}
		deps.DeclareProperty(f.Name, tok, optional)
	}
	return deps, nil
}
