package gpuring

import (
	"testing"
)

// TestDefaultOptions tests the defaults applied by New.
func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.alignment != DefaultAlignment {
		t.Errorf("alignment = %d, want %d", o.alignment, DefaultAlignment)
	}
	if o.policy != MappingPersistent {
		t.Errorf("policy = %v, want Persistent", o.policy)
	}
	if _, ok := o.observer.(nopObserver); !ok {
		t.Errorf("observer = %T, want nopObserver", o.observer)
	}
	if o.label == "" {
		t.Error("label is empty")
	}
}

// TestOptionsApply tests that every option is applied.
func TestOptionsApply(t *testing.T) {
	obs := newRecordingObserver()
	o := defaultOptions()
	for _, opt := range []Option{
		WithAlignment(256),
		WithMappingPolicy(MappingReleaseOnSwap),
		WithObserver(obs),
		WithLabel("constants"),
	} {
		opt(&o)
	}

	if o.alignment != 256 {
		t.Errorf("alignment = %d, want 256", o.alignment)
	}
	if o.policy != MappingReleaseOnSwap {
		t.Errorf("policy = %v, want ReleaseOnSwap", o.policy)
	}
	if o.observer != obs {
		t.Error("observer not applied")
	}
	if o.label != "constants" {
		t.Errorf("label = %q, want %q", o.label, "constants")
	}
}

// TestWithLabelEmptyKeepsDefault tests that an empty label is ignored.
func TestWithLabelEmptyKeepsDefault(t *testing.T) {
	o := defaultOptions()
	WithLabel("")(&o)
	if o.label != "gpuring" {
		t.Errorf("label = %q, want %q", o.label, "gpuring")
	}
}

// TestWithAlignmentOffsets tests that a larger alignment is honored.
func TestWithAlignmentOffsets(t *testing.T) {
	a, _ := newTestRing(t, 4096, 2, WithAlignment(256))

	if _, err := a.Allocate(16, false); err == nil {
		t.Error("Allocate(16) accepted a size below the 256-byte alignment")
	}
	for i := uint64(0); i < 4; i++ {
		alloc := mustAllocate(t, a, 256)
		if alloc.Offset != i*256 {
			t.Errorf("offset = %d, want %d", alloc.Offset, i*256)
		}
	}
}

func TestMappingPolicyString(t *testing.T) {
	tests := []struct {
		policy MappingPolicy
		want   string
	}{
		{MappingPersistent, "Persistent"},
		{MappingReleaseOnSwap, "ReleaseOnSwap"},
		{MappingPolicy(9), "Unknown(9)"},
	}
	for _, tt := range tests {
		if got := tt.policy.String(); got != tt.want {
			t.Errorf("MappingPolicy(%d).String() = %q, want %q", int(tt.policy), got, tt.want)
		}
	}
}
