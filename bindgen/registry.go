package bindgen

import (
	"context"
	"slices"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/value"
)

// closureWrapperPrefix starts every closure wrapper import name.
const closureWrapperPrefix = "__wbindgen_closure_wrapper"

// hashSuffixLen is the length of "_" plus 16 hex digits.
const hashSuffixLen = 17

// CanonicalName strips the hash suffix wasm-bindgen appends to import names,
// e.g. "__wbg_log_7e2896b6bfda40df" becomes "__wbg_log".
func CanonicalName(name string) string {
	if len(name) <= hashSuffixLen || name[len(name)-hashSuffixLen] != '_' {
		return name
	}
	for _, c := range name[len(name)-hashSuffixLen+1:] {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return name
		}
	}
	return name[:len(name)-hashSuffixLen]
}

// ImportDef is one import implementation, selected by canonical name and signature.
type ImportDef struct {
	Build   func(b *Bridge) api.GoModuleFunc
	Name    string
	Params  []api.ValueType
	Results []api.ValueType
}

func (d ImportDef) matches(params, results []api.ValueType) bool {
	return slices.Equal(d.Params, params) && slices.Equal(d.Results, results)
}

// Imports lists every import implementation the bridge provides. Names that
// appear twice are told apart by signature.
var Imports = []ImportDef{
	{Name: "__wbg_call", Params: []api.ValueType{i32, i32}, Results: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importCall0 }},
	{Name: "__wbg_call", Params: []api.ValueType{i32, i32, i32}, Results: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importCall1 }},
	{Name: "__wbg_newnoargs", Params: []api.ValueType{i32, i32}, Results: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importNewNoArgs }},
	{Name: "__wbg_new", Params: []api.ValueType{i32, i32}, Results: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importNewPromise }},
	{Name: "__wbg_resolve", Params: []api.ValueType{i32}, Results: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importResolve }},
	{Name: "__wbg_then", Params: []api.ValueType{i32, i32}, Results: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importThen1 }},
	{Name: "__wbg_then", Params: []api.ValueType{i32, i32, i32}, Results: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importThen2 }},
	{Name: "__wbg_queueMicrotask", Params: []api.ValueType{i32}, Results: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importQueueMicrotaskGet }},
	{Name: "__wbg_queueMicrotask", Params: []api.ValueType{i32}, Results: nil,
		Build: func(b *Bridge) api.GoModuleFunc { return b.importQueueMicrotask }},
	{Name: "__wbg_static_accessor_GLOBAL_THIS", Results: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc {
			return b.globalAccessor(func(g value.Globals) any { return g.GlobalThis })
		}},
	{Name: "__wbg_static_accessor_WINDOW", Results: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc {
			return b.globalAccessor(func(g value.Globals) any { return g.Window })
		}},
	{Name: "__wbg_static_accessor_SELF", Results: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc {
			return b.globalAccessor(func(g value.Globals) any { return g.Self })
		}},
	{Name: "__wbg_static_accessor_GLOBAL", Results: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc {
			return b.globalAccessor(func(g value.Globals) any { return g.Global })
		}},
	{Name: "__wbg_log", Params: []api.ValueType{i32, i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importLog }},
	{Name: "__wbg_sleep", Params: []api.ValueType{i64}, Results: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importSleep }},
	{Name: "__wbindgen_debug_string", Params: []api.ValueType{i32, i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importDebugString }},
	{Name: "__wbindgen_init_externref_table",
		Build: func(b *Bridge) api.GoModuleFunc { return b.importInitTable }},
	{Name: "__wbindgen_is_function", Params: []api.ValueType{i32}, Results: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importIsFunction }},
	{Name: "__wbindgen_is_undefined", Params: []api.ValueType{i32}, Results: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importIsUndefined }},
	{Name: "__wbindgen_throw", Params: []api.ValueType{i32, i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importThrow }},
	{Name: "__wbindgen_cb_drop", Params: []api.ValueType{i32}, Results: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importCbDrop }},
	{Name: "__wbindgen_object_drop_ref", Params: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importDropRef }},
	{Name: "__wbindgen_object_clone_ref", Params: []api.ValueType{i32}, Results: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importCloneRef }},
	{Name: "__wbindgen_string_new", Params: []api.ValueType{i32, i32}, Results: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importStringNew }},
	{Name: "__wbindgen_string_get", Params: []api.ValueType{i32, i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importStringGet }},
	{Name: "__wbindgen_number_new", Params: []api.ValueType{f64}, Results: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importNumberNew }},
	{Name: "__wbindgen_number_get", Params: []api.ValueType{i32, i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importNumberGet }},
	{Name: "__wbindgen_error_new", Params: []api.ValueType{i32, i32}, Results: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importErrorNew }},
	{Name: "__wbindgen_exn_take", Results: []api.ValueType{i32},
		Build: func(b *Bridge) api.GoModuleFunc { return b.importExnTake }},
}

var closureWrapperSig = ImportDef{
	Params:  []api.ValueType{i32, i32, i32},
	Results: []api.ValueType{i32},
}

// Binding is a resolved import ready to be exported from the host module.
type Binding struct {
	Fn        api.GoModuleFunc
	Module    string
	Name      string
	Canonical string
	Params    []api.ValueType
	Results   []api.ValueType
}

// Resolve maps a module's imported functions onto bridge implementations.
// Every unresolved import is reported in one MissingImportsError.
func (b *Bridge) Resolve(defs []api.FunctionDefinition) ([]Binding, error) {
	var (
		bindings []Binding
		missing  []errors.MissingImport
	)
	for _, def := range defs {
		mod, name, ok := def.Import()
		if !ok {
			continue
		}
		params, results := def.ParamTypes(), def.ResultTypes()
		binding, found := b.lookup(mod, name, params, results)
		if !found {
			missing = append(missing, errors.MissingImport{
				Module:  mod,
				Name:    name,
				Params:  len(params),
				Results: len(results),
			})
			continue
		}
		bindings = append(bindings, binding)
	}
	if len(missing) > 0 {
		return nil, errors.NewMissingImportsError(missing)
	}
	return bindings, nil
}

func (b *Bridge) lookup(mod, name string, params, results []api.ValueType) (Binding, bool) {
	if mod != b.module {
		return Binding{}, false
	}
	binding := Binding{
		Module:    mod,
		Name:      name,
		Canonical: CanonicalName(name),
		Params:    params,
		Results:   results,
	}

	if strings.HasPrefix(name, closureWrapperPrefix) {
		spec, ok := b.closures[name]
		if !ok || !closureWrapperSig.matches(params, results) {
			return Binding{}, false
		}
		binding.Canonical = closureWrapperPrefix
		binding.Fn = b.counted(closureWrapperPrefix, b.closureWrapper(name, spec))
		return binding, true
	}

	for _, def := range Imports {
		if def.Name == binding.Canonical && def.matches(params, results) {
			binding.Fn = b.counted(def.Name, def.Build(b))
			return binding, true
		}
	}
	return Binding{}, false
}

func (b *Bridge) counted(name string, fn api.GoModuleFunc) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		b.metrics.ImportCall(name)
		fn(ctx, mod, stack)
	}
}

// Instantiate resolves the imports of compiled and instantiates them as a
// host module in r. The returned module must outlive the guest.
func (b *Bridge) Instantiate(ctx context.Context, r wazero.Runtime, compiled wazero.CompiledModule) (api.Module, error) {
	bindings, err := b.Resolve(compiled.ImportedFunctions())
	if err != nil {
		return nil, err
	}

	builder := r.NewHostModuleBuilder(b.module)
	for _, bd := range bindings {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(bd.Fn, bd.Params, bd.Results).
			WithName(bd.Canonical).
			Export(bd.Name)
	}
	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLinking, errors.KindInstantiation, err, "instantiate host module "+b.module)
	}
	b.logger.Debug("host module instantiated",
		zap.String("module", b.module),
		zap.Int("imports", len(bindings)))
	return mod, nil
}
