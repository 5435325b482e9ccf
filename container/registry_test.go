package container

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestd-go/nestd/errors"
	"github.com/nestd-go/nestd/metadata"
)

func build(t *testing.T, root *ModuleDef, opts ...Option) *Graph {
	t.Helper()

	r := NewRegistry(opts...)
	_, err := r.Register(root)
	require.NoError(t, err)

	g, err := r.Build(context.Background())
	require.NoError(t, err)
	return g
}

func module(t *testing.T, g *Graph, name string) *Module {
	t.Helper()

	m, ok := g.Module(name)
	require.True(t, ok, "module %s not found", name)
	return m
}

func TestModuleDef_Lookup(t *testing.T) {
	dep := NewModule("Dep")
	def := NewModule("App").
		Import(dep).
		Provide(Class(newService)).
		Export(metadata.TypeOf[*service]()).
		ExportModule(dep).
		Global()

	v, ok := def.Lookup(metadata.KeyImports)
	require.True(t, ok)
	assert.Equal(t, []*ModuleDef{dep}, v)

	v, ok = def.Lookup(metadata.KeyModules)
	require.True(t, ok)
	assert.Equal(t, []*ModuleDef{dep}, v)

	v, ok = def.Lookup(metadata.KeyExports)
	require.True(t, ok)
	assert.Equal(t, []any{metadata.TypeOf[*service](), dep}, v)

	v, ok = def.Lookup(metadata.KeyGlobalModule)
	require.True(t, ok)
	assert.Equal(t, true, v)

	_, ok = def.Lookup(metadata.KeySharedModule)
	assert.True(t, ok, "global modules are shared")

	_, ok = NewModule("Empty").Lookup(metadata.KeyProviders)
	assert.False(t, ok)

	_, ok = def.Lookup(metadata.KeyParamTypes)
	assert.False(t, ok)
}

func TestScanner_VisibilityScopes(t *testing.T) {
	db := NewModule("DatabaseModule").
		Provide(Value(metadata.TypeOf[*config](), &config{DSN: "postgres://"}), Class(newRepository)).
		Export(metadata.TypeOf[*repository]())
	app := NewModule("AppModule").Import(db).Provide(Class(newService))

	g := build(t, app)
	appMod := module(t, g, "AppModule")

	repo, err := g.FindScoped(metadata.TypeOf[*repository](), appMod)
	require.NoError(t, err)
	assert.Equal(t, "postgres://", repo.(*repository).cfg.DSN)

	_, err = g.FindScoped(metadata.TypeOf[*config](), appMod)
	assert.True(t, errors.IsTokenNotVisible(err), "unexported provider must not leak: %v", err)

	_, err = g.FindScoped(metadata.Name("UNKNOWN"), appMod)
	assert.True(t, errors.IsTokenNotFound(err))

	cfg, err := g.Find(metadata.TypeOf[*config]())
	require.NoError(t, err, "Find ignores visibility")
	assert.Equal(t, "postgres://", cfg.(*config).DSN)

	_, err = g.Find(metadata.Name("UNKNOWN"))
	assert.ErrorIs(t, err, errors.ErrTokenNotFoundSentinel)
}

func TestScanner_GlobalReach(t *testing.T) {
	global := NewModule("ConfigModule").
		Provide(Value(metadata.Name("APP_NAME"), "nestd")).
		Export(metadata.Name("APP_NAME")).
		Global()
	feature := NewModule("FeatureModule").Provide(
		Factory(metadata.Name("GREETING"), func(app string) string { return "hello " + app },
			InjectAll(metadata.Name("APP_NAME"))),
	)
	other := NewModule("OtherModule")

	g := build(t, NewModule("AppModule").Import(global, feature, other))

	v, err := g.FindScoped(metadata.Name("GREETING"), module(t, g, "FeatureModule"))
	require.NoError(t, err)
	assert.Equal(t, "hello nestd", v)

	v, err = g.FindScoped(metadata.Name("APP_NAME"), module(t, g, "OtherModule"))
	require.NoError(t, err)
	assert.Equal(t, "nestd", v)
}

func TestScanner_LookupPrecedence(t *testing.T) {
	driver := metadata.Name("DRIVER")
	region := metadata.Name("REGION")

	first := NewModule("First").Provide(Value(driver, "first")).Export(driver)
	second := NewModule("Second").Provide(Value(driver, "second")).Export(driver)
	global := NewModule("Global").
		Provide(Value(driver, "global"), Value(region, "eu")).
		Export(driver, region).
		Global()
	owner := NewModule("Owner").Provide(Value(driver, "own"))
	importer := NewModule("Importer").Import(first, second)

	g := build(t, NewModule("App").Import(global, owner, importer))

	tests := []struct {
		module string
		token  metadata.Token
		want   string
	}{
		{"Owner", driver, "own"},
		{"Importer", driver, "first"},
		{"Importer", region, "eu"},
		{"App", driver, "global"},
		{"Second", driver, "second"},
	}
	for _, tt := range tests {
		t.Run(tt.module+"/"+tt.token.String(), func(t *testing.T) {
			v, err := g.FindScoped(tt.token, module(t, g, tt.module))
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}

	v, err := g.Find(driver)
	require.NoError(t, err)
	assert.Equal(t, "global", v, "Find returns the first registration")
}

func TestScanner_SymbolTokensAreDistinct(t *testing.T) {
	a := metadata.Symbol("CACHE")
	b := metadata.Symbol("CACHE")

	g := build(t, NewModule("App").Provide(Value(a, "a"), Value(b, "b")))

	va, err := g.Find(a)
	require.NoError(t, err)
	vb, err := g.Find(b)
	require.NoError(t, err)
	assert.Equal(t, "a", va)
	assert.Equal(t, "b", vb)
}

func TestRegistry_SharedModuleIdentity(t *testing.T) {
	var calls atomic.Int32
	counterMod := NewModule("CounterModule").
		Provide(Class(func() *counter { return &counter{id: int(calls.Add(1))} })).
		Export(metadata.TypeOf[*counter]()).
		Shared()
	a := NewModule("A").Import(counterMod)
	b := NewModule("B").Import(counterMod)

	g := build(t, NewModule("App").Import(a, b))

	assert.Equal(t, int32(1), calls.Load())

	ca, err := g.FindScoped(metadata.TypeOf[*counter](), module(t, g, "A"))
	require.NoError(t, err)
	cb, err := g.FindScoped(metadata.TypeOf[*counter](), module(t, g, "B"))
	require.NoError(t, err)
	assert.Same(t, ca, cb)

	count := 0
	for _, m := range g.Modules() {
		if m.Name() == "CounterModule" {
			count++
			assert.True(t, m.IsShared())
		}
	}
	assert.Equal(t, 1, count)
}

func TestRegistry_NonSharedModulePerImporter(t *testing.T) {
	var calls atomic.Int32
	counterMod := NewModule("CounterModule").
		Provide(Class(func() *counter { return &counter{id: int(calls.Add(1))} })).
		Export(metadata.TypeOf[*counter]())
	a := NewModule("A").Import(counterMod)
	b := NewModule("B").Import(counterMod)

	g := build(t, NewModule("App").Import(a, b))

	assert.Equal(t, int32(2), calls.Load())

	ca, err := g.FindScoped(metadata.TypeOf[*counter](), module(t, g, "A"))
	require.NoError(t, err)
	cb, err := g.FindScoped(metadata.TypeOf[*counter](), module(t, g, "B"))
	require.NoError(t, err)
	assert.NotSame(t, ca, cb)

	ids := map[string]bool{}
	for _, m := range g.Modules() {
		ids[m.ID()] = true
	}
	assert.Len(t, ids, 5, "App, A, B and one CounterModule per importer")
}

func TestRegistry_ImportCycleReusesAncestor(t *testing.T) {
	a := NewModule("A")
	b := NewModule("B").Import(a).Provide(Value(metadata.Name("B_VAL"), "b")).Export(metadata.Name("B_VAL"))
	a.Import(b).Provide(Value(metadata.Name("A_VAL"), "a")).Export(metadata.Name("A_VAL"))

	g := build(t, a)
	require.Len(t, g.Modules(), 2)

	v, err := g.FindScoped(metadata.Name("A_VAL"), module(t, g, "B"))
	require.NoError(t, err)
	assert.Equal(t, "a", v)

	v, err = g.FindScoped(metadata.Name("B_VAL"), module(t, g, "A"))
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}

func TestRegistry_ReExports(t *testing.T) {
	logTok := metadata.Name("LOGGER")
	core := NewModule("Core").Provide(Value(logTok, "log")).Export(logTok).Shared()
	kit := NewModule("Kit").Import(core).ExportModule(core)
	tokenKit := NewModule("TokenKit").Import(core).Export(logTok)

	svc := func(name string) *Provider {
		return Factory(metadata.Name(name), func(l string) string { return name + ":" + l }, InjectAll(logTok))
	}
	viaModule := NewModule("ViaModule").Import(kit).Provide(svc("A"))
	viaToken := NewModule("ViaToken").Import(tokenKit).Provide(svc("B"))

	g := build(t, NewModule("App").Import(viaModule, viaToken))

	v, err := g.FindScoped(metadata.Name("A"), module(t, g, "ViaModule"))
	require.NoError(t, err)
	assert.Equal(t, "A:log", v)

	v, err = g.FindScoped(metadata.Name("B"), module(t, g, "ViaToken"))
	require.NoError(t, err)
	assert.Equal(t, "B:log", v)

	assert.Equal(t, []*Module{module(t, g, "Core")}, module(t, g, "Kit").ExportedModules())
}

func TestRegistry_InvalidExport(t *testing.T) {
	t.Run("token neither provided nor imported", func(t *testing.T) {
		_, err := NewRegistry().Register(NewModule("Bad").Export(metadata.Name("MISSING")))
		assert.True(t, errors.IsInvalidExport(err))
		assert.ErrorContains(t, err, "MISSING")
	})

	t.Run("token provided by an import that does not export it", func(t *testing.T) {
		dep := NewModule("Dep").Provide(Value(metadata.Name("HIDDEN"), 1))
		_, err := NewRegistry().Register(NewModule("Bad").Import(dep).Export(metadata.Name("HIDDEN")))
		assert.True(t, errors.IsInvalidExport(err))
	})

	t.Run("module not imported", func(t *testing.T) {
		_, err := NewRegistry().Register(NewModule("Bad").ExportModule(NewModule("Stranger")))
		assert.True(t, errors.IsInvalidExport(err))
	})

	t.Run("imperative assembly", func(t *testing.T) {
		r := NewRegistry()
		m, err := r.AddModule("Manual")
		require.NoError(t, err)
		dep, err := r.AddModule("Dep")
		require.NoError(t, err)

		tok := metadata.Name("TOKEN")
		assert.True(t, errors.IsInvalidExport(r.AddExport(m, tok)))
		assert.True(t, errors.IsInvalidExport(r.AddModuleExport(m, dep)))

		require.NoError(t, r.AddProvider(m, Value(tok, 1)))
		require.NoError(t, r.AddExport(m, tok))
		require.NoError(t, r.AddImport(m, dep))
		require.NoError(t, r.AddModuleExport(m, dep))
		require.NoError(t, r.MarkShared(dep))
		require.NoError(t, r.MarkGlobal(m))

		assert.Equal(t, []metadata.Token{tok}, m.Exports())
		assert.True(t, m.IsGlobal())
		assert.True(t, dep.IsShared())
		assert.Len(t, r.Modules(), 2)
	})
}

func TestRegistry_DuplicateProvider(t *testing.T) {
	_, err := NewRegistry().Register(NewModule("App").Provide(
		Value(metadata.Name("PORT"), 1),
		Value(metadata.Name("PORT"), 2),
	))
	assert.ErrorIs(t, err, errors.ErrInvalidProviderSentinel)
	assert.ErrorIs(t, err, errors.ErrDuplicateProviderSentinel)
}

func TestRegistry_InvalidProviderDeclaration(t *testing.T) {
	_, err := NewRegistry().Register(NewModule("App").Provide(Class(42)))
	assert.ErrorIs(t, err, errors.ErrInvalidProviderSentinel)
}

func TestRegistry_SealedAfterBuild(t *testing.T) {
	r := NewRegistry()
	m, err := r.Register(NewModule("App"))
	require.NoError(t, err)

	g, err := r.Build(context.Background())
	require.NoError(t, err)

	again, err := r.Build(context.Background())
	require.NoError(t, err)
	assert.Same(t, g, again)

	sealed := []error{
		r.AddProvider(m, Value(metadata.Name("X"), 1)),
		r.AddImport(m, m),
		r.AddExport(m, metadata.Name("X")),
		r.AddModuleExport(m, m),
		r.MarkGlobal(m),
		r.MarkShared(m),
	}
	_, err = r.Register(NewModule("Late"))
	sealed = append(sealed, err)
	_, err = r.AddModule("Late")
	sealed = append(sealed, err)

	for _, err := range sealed {
		assert.ErrorIs(t, err, errors.ErrRegistrySealedSentinel)
	}
}

func TestRegistry_ForeignModule(t *testing.T) {
	other, err := NewRegistry().AddModule("Other")
	require.NoError(t, err)

	r := NewRegistry()
	m, err := r.AddModule("Mine")
	require.NoError(t, err)

	assert.Error(t, r.AddProvider(other, Value(metadata.Name("X"), 1)))
	assert.Error(t, r.AddImport(m, other))
}

func TestRegistry_MissingDependency(t *testing.T) {
	t.Run("not provided", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Register(NewModule("App").Provide(Class(newService)))
		require.NoError(t, err)

		_, err = r.Build(context.Background())
		assert.True(t, errors.IsMissingDependency(err))
		assert.True(t, errors.IsTokenNotFound(err))
		assert.ErrorContains(t, err, "index [0]")
	})

	t.Run("not visible", func(t *testing.T) {
		hidden := NewModule("Hidden").Provide(Value(metadata.TypeOf[*repository](), &repository{}))
		r := NewRegistry()
		_, err := r.Register(NewModule("App").Import(hidden).Provide(Class(newService)))
		require.NoError(t, err)

		_, err = r.Build(context.Background())
		assert.True(t, errors.IsMissingDependency(err))
		assert.True(t, errors.IsTokenNotVisible(err))
	})

	t.Run("property", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Register(NewModule("App").Provide(Class(func() *handler { return &handler{} })))
		require.NoError(t, err)

		_, err = r.Build(context.Background())
		assert.True(t, errors.IsMissingDependency(err))
		assert.ErrorContains(t, err, "property 'Repo'")
	})
}

func TestRegistry_CircularDependency(t *testing.T) {
	r := NewRegistry()
	_, err := r.Register(NewModule("App").Provide(
		Class(func(q *serviceQ) *serviceP { return &serviceP{q: q} }),
		Class(func(p *serviceP) *serviceQ { return &serviceQ{p: p} }),
	))
	require.NoError(t, err)

	_, err = r.Build(context.Background())
	require.True(t, errors.IsCircularDependency(err))
	assert.Equal(t, []string{"*container.serviceP", "*container.serviceQ", "*container.serviceP"}, errors.Chain(err))
}

func TestRegistry_CircularDependencyAcrossModules(t *testing.T) {
	x := NewModule("X")
	y := NewModule("Y").
		Import(x).
		Provide(Class(func(p *serviceP) *serviceQ { return &serviceQ{p: p} })).
		Export(metadata.TypeOf[*serviceQ]())
	x.Import(y).
		Provide(Class(func(q *serviceQ) *serviceP { return &serviceP{q: q} })).
		Export(metadata.TypeOf[*serviceP]())

	r := NewRegistry()
	_, err := r.Register(x)
	require.NoError(t, err)
	require.Len(t, r.Modules(), 2)

	_, err = r.Build(context.Background())
	require.True(t, errors.IsCircularDependency(err))
	assert.Equal(t, []string{"*container.serviceP", "*container.serviceQ", "*container.serviceP"}, errors.Chain(err))
}

func TestRegistry_TypedValidationErrors(t *testing.T) {
	r := NewRegistry()

	_, err := r.Register(nil)
	assert.True(t, errors.IsValidationError(err))
	assert.ErrorIs(t, err, errors.ErrNilModule)

	m, err := r.AddModule("App")
	require.NoError(t, err)

	other, err := NewRegistry().AddModule("Other")
	require.NoError(t, err)

	err = r.AddImport(m, other)
	assert.True(t, errors.IsValidationError(err))
	assert.ErrorIs(t, err, errors.ErrForeignModule)

	err = r.AddExport(other, metadata.Name("X"))
	assert.True(t, errors.IsValidationError(err))
	assert.ErrorIs(t, err, errors.ErrForeignModule)

	err = r.AddProvider(m, nil)
	assert.ErrorIs(t, err, errors.ErrInvalidProviderSentinel)
	assert.ErrorIs(t, err, errors.ErrNilProvider)
}
