// Package shaders supplies the SPIR-V of the raster stages. The sources
// are embedded WGSL compiled with naga on first use.
package shaders

import (
	_ "embed"
	"encoding/binary"
	"sync"

	"github.com/gogpu/naga"
	"github.com/pkg/errors"

	"github.com/celer/vkgrt"
)

// SPIRVMagic is the first word of a SPIR-V module.
const SPIRVMagic = 0x07230203

//go:embed triangle.vert.wgsl
var triangleVertexSource string

//go:embed triangle.frag.wgsl
var triangleFragmentSource string

var (
	triangleOnce sync.Once
	triangle     *vkgrt.ShaderCode
	triangleErr  error
)

// Compile compiles WGSL source to SPIR-V and checks the module header.
func Compile(name, source string) ([]byte, error) {
	spirv, err := naga.Compile(source)
	if err != nil {
		return nil, errors.Wrapf(err, "compile %s", name)
	}
	if len(spirv) < 20 || len(spirv)%4 != 0 {
		return nil, errors.Errorf("compile %s: %d bytes is not a SPIR-V module", name, len(spirv))
	}
	if m := binary.LittleEndian.Uint32(spirv); m != SPIRVMagic {
		return nil, errors.Errorf("compile %s: bad SPIR-V magic %#x", name, m)
	}
	return spirv, nil
}

// Triangle returns the vertex and fragment stages drawing the harness
// triangle. The result is shared and must not be modified.
func Triangle() (*vkgrt.ShaderCode, error) {
	triangleOnce.Do(func() {
		vs, err := Compile("triangle vertex shader", triangleVertexSource)
		if err != nil {
			triangleErr = err
			return
		}
		fs, err := Compile("triangle fragment shader", triangleFragmentSource)
		if err != nil {
			triangleErr = err
			return
		}
		triangle = &vkgrt.ShaderCode{
			Vertex:        vs,
			VertexEntry:   "vs_main",
			Fragment:      fs,
			FragmentEntry: "fs_main",
		}
	})
	return triangle, triangleErr
}
