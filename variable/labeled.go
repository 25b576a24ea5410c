package variable

import "github.com/jokasimr/scipp/dims"

// Labeled is the accessor shape spec §6 describes for DataArray/Dataset:
// a named bundle of a data Variable plus coordinate/mask/attribute
// Variables, all keyed off Dims the core itself never inspects. The core
// depends on nothing implementing this -- it only needs to be able to
// build the Variables a future DataArray/Dataset package would hold, so
// Labeled lives here purely as the contract that package would satisfy.
type Labeled interface {
	Name() string
	Data() Variable
	Coords() map[dims.Dim]Variable
	Masks() map[string]Variable
	Attrs() map[dims.Dim]Variable
}
