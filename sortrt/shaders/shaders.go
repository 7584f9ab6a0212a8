package shaders

import (
	_ "embed"
)

//go:embed copy.wgsl
var CopyWGSL string

//go:embed transform.wgsl
var TransformWGSL string

//go:embed bitonic.wgsl
var BitonicWGSL string
