package shaders

import (
	"encoding/binary"
	"strings"
	"testing"
)

func TestSources(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		required []string
	}{
		{"vertex", triangleVertexSource, []string{"@vertex", "vs_main", "vertex_index"}},
		{"fragment", triangleFragmentSource, []string{"@fragment", "fs_main", "@location(0)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, req := range tt.required {
				if !strings.Contains(tt.source, req) {
					t.Errorf("%s shader missing %q", tt.name, req)
				}
			}
		})
	}
}

func TestTriangle(t *testing.T) {
	code, err := Triangle()
	if err != nil {
		t.Fatal(err)
	}
	for name, blob := range map[string][]byte{"vertex": code.Vertex, "fragment": code.Fragment} {
		if len(blob)%4 != 0 {
			t.Errorf("%s: %d bytes is not word aligned", name, len(blob))
			continue
		}
		if m := binary.LittleEndian.Uint32(blob); m != SPIRVMagic {
			t.Errorf("%s: magic %#x", name, m)
		}
	}
	if code.VertexEntry != "vs_main" || code.FragmentEntry != "fs_main" {
		t.Errorf("entry points %q %q", code.VertexEntry, code.FragmentEntry)
	}

	again, _ := Triangle()
	if again != code {
		t.Error("Triangle compiled twice")
	}
}

func TestCompileError(t *testing.T) {
	if _, err := Compile("broken", "fn main( {"); err == nil {
		t.Error("expected an error for invalid WGSL")
	}
}
