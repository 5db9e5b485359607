package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseHost,
				Kind:   KindTypeMismatch,
				Path:   []string{"args", "0"},
				Import: "__wbg_call",
				GoType: "string",
				Detail: "value is not callable",
			},
			contains: []string{"[host]", "type_mismatch", "args.0", "__wbg_call", "Go type string", "value is not callable"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[decode]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseEncode,
				Kind:   KindAllocation,
				Detail: "memory full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[encode]", "allocation", "memory full", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find cause through the chain")
	}
}

func TestError_Is(t *testing.T) {
	err := InvalidHandle(2, "sentinel slot is read-only")

	if !err.Is(&Error{Phase: PhaseBridge, Kind: KindInvalidHandle}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseHost, Kind: KindInvalidHandle}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseBridge, Kind: KindOutOfBounds}) {
		t.Error("Is should not match different kind")
	}

	var target *Error
	if !errors.As(error(err), &target) || target.Value != uint32(2) {
		t.Errorf("errors.As returned %v", target)
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseHost, KindTypeMismatch).
		Path("args", "1").
		GoType("float64").
		Import("__wbg_then").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "function", "number").
		Build()

	if err.Phase != PhaseHost {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseHost)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if err.Import != "__wbg_then" {
		t.Errorf("Import = %q", err.Import)
	}
	if err.Detail != "expected function, got number" {
		t.Errorf("Detail = %q", err.Detail)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v", err.Value)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not reachable")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("InvalidUTF8 truncates preview", func(t *testing.T) {
		data := make([]byte, 64)
		for i := range data {
			data[i] = 0xff
		}
		err := InvalidUTF8(PhaseDecode, 16, data)
		if err.Kind != KindInvalidUTF8 {
			t.Errorf("Kind = %v", err.Kind)
		}
		if strings.Count(err.Detail, "ff") != 32 {
			t.Errorf("preview not truncated to 32 bytes: %q", err.Detail)
		}
		if !strings.Contains(err.Detail, "0x10") {
			t.Errorf("detail %q missing pointer", err.Detail)
		}
	})

	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed(PhaseEncode, 1024, 1, errors.New("oom"))
		if err.Kind != KindAllocation || !strings.Contains(err.Detail, "1024") {
			t.Errorf("unexpected error %v", err)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseDecode, 65530, 10, 65536)
		if !strings.Contains(err.Detail, "65540") {
			t.Errorf("detail %q missing range end", err.Detail)
		}
	})

	t.Run("HostException", func(t *testing.T) {
		cause := errors.New("boom")
		err := HostException("__wbg_call", "thrown", cause)
		if err.Phase != PhaseHost || err.Kind != KindHostException {
			t.Errorf("unexpected classification %v/%v", err.Phase, err.Kind)
		}
		if err.Value != "thrown" || !errors.Is(err, cause) {
			t.Errorf("unexpected error %v", err)
		}
	})

	t.Run("Fatal", func(t *testing.T) {
		err := Fatal("unreachable executed")
		if err.Kind != KindFatal || !strings.Contains(err.Error(), "unreachable executed") {
			t.Errorf("unexpected error %v", err)
		}
	})

	t.Run("Detached", func(t *testing.T) {
		err := Detached("string decode")
		if err.Kind != KindDetached || !strings.Contains(err.Detail, "string decode") {
			t.Errorf("unexpected error %v", err)
		}
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		err := TypeMismatch(PhaseHost, "function", 1.5)
		if err.GoType != "float64" {
			t.Errorf("GoType = %q", err.GoType)
		}
	})
}

func TestMissingImportsError(t *testing.T) {
	t.Run("groups by module", func(t *testing.T) {
		err := NewMissingImportsError([]MissingImport{
			{Module: "__wbindgen_placeholder__", Name: "__wbg_fetch_0123456789abcdef", Params: 1, Results: 1},
			{Module: "__wbindgen_placeholder__", Name: "__wbg_alert_fedcba9876543210", Params: 2},
			{Module: "env", Name: "abort", Params: 4},
		})
		msg := err.Error()
		for _, s := range []string{
			"missing 3 host function(s)",
			"__wbindgen_placeholder__:",
			"env:",
			"__wbg_fetch_0123456789abcdef (1 params, 1 results)",
			"abort (4 params, 0 results)",
		} {
			if !strings.Contains(msg, s) {
				t.Errorf("message %q missing %q", msg, s)
			}
		}
		if strings.Count(msg, "__wbindgen_placeholder__:") != 1 {
			t.Errorf("module listed more than once: %q", msg)
		}
	})

	t.Run("empty", func(t *testing.T) {
		err := NewMissingImportsError(nil)
		if !strings.Contains(err.Error(), "no imports specified") {
			t.Errorf("unexpected message %q", err.Error())
		}
	})

	t.Run("errors.Is", func(t *testing.T) {
		var err error = NewMissingImportsError(nil)
		if !errors.Is(err, &MissingImportsError{}) {
			t.Error("errors.Is should match MissingImportsError")
		}
	})
}
