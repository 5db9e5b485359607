package runtime

import (
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/bindgen"
	"github.com/wippyai/wasm-bridge/errors"
	"github.com/wippyai/wasm-bridge/eventloop"
	"github.com/wippyai/wasm-bridge/internal/metrics"
	"github.com/wippyai/wasm-bridge/value"
)

// Exports names the module exports the host calls.
type Exports struct {
	bindgen.ExportNames `yaml:",inline"`

	// Run is the async entry point. It returns a handle to a promise.
	Run string `yaml:"run"`

	// Start runs once after instantiation when the module exports it.
	Start string `yaml:"start"`
}

// Manifest describes the glue of one module: where its imports live, what
// its exports are called, and which closure wrappers it uses.
//
//	import_module: __wbindgen_placeholder__
//	exports:
//	  run: run
//	  table_call: __wbindgen_table_call
//	closures:
//	  __wbindgen_closure_wrapper58:
//	    invoke: closure17_externref_shim
//	    dtor: 12
//	promise_executor: closure31_externref_shim
type Manifest struct {
	Closures        map[string]bindgen.ClosureSpec `yaml:"closures"`
	ImportModule    string                         `yaml:"import_module"`
	PromiseExecutor string                         `yaml:"promise_executor"`
	Exports         Exports                        `yaml:"exports"`
}

// DefaultManifest returns the wasm-bindgen defaults with "run" as entry point.
func DefaultManifest() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

// ParseManifest decodes a YAML manifest and fills unset fields with defaults.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse manifest")
	}
	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadManifest reads a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read manifest "+path)
	}
	return ParseManifest(data)
}

func (m *Manifest) applyDefaults() {
	if m.ImportModule == "" {
		m.ImportModule = bindgen.DefaultImportModule
	}
	def := bindgen.DefaultExportNames()
	n := &m.Exports.ExportNames
	for _, f := range []struct {
		field *string
		value string
	}{
		{&n.Memory, def.Memory},
		{&n.Malloc, def.Malloc},
		{&n.Realloc, def.Realloc},
		{&n.Free, def.Free},
		{&n.ExnStore, def.ExnStore},
		{&n.TableCall, def.TableCall},
		{&m.Exports.Run, "run"},
		{&m.Exports.Start, "__wbindgen_start"},
	} {
		if *f.field == "" {
			*f.field = f.value
		}
	}
}

// Validate checks closure wrapper entries.
func (m *Manifest) Validate() error {
	for name, spec := range m.Closures {
		if !strings.HasPrefix(name, "__wbindgen_closure_wrapper") {
			return errors.InvalidData(errors.PhaseConfig, []string{"closures", name}, "not a closure wrapper import")
		}
		if spec.Invoke == "" {
			return errors.InvalidData(errors.PhaseConfig, []string{"closures", name, "invoke"}, "invoke export is required")
		}
	}
	return nil
}

func (m *Manifest) bridgeConfig(l *zap.Logger, mt *metrics.Metrics, globals value.Globals) bindgen.Config {
	return bindgen.Config{
		Logger:          l,
		Metrics:         mt,
		Loop:            eventloop.New(eventloop.WithLogger(l), eventloop.WithMetrics(mt)),
		Closures:        m.Closures,
		Globals:         globals,
		ImportModule:    m.ImportModule,
		PromiseExecutor: m.PromiseExecutor,
		Names:           m.Exports.ExportNames,
	}
}
