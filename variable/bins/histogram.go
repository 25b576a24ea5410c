// Package bins implements the binned-variable operations of spec §4.F:
// per-bin reduction, bin-wise concatenation, the shared 1-D histogram
// algorithm, and event-to-histogram lookup. It sits above package
// variable (the binned Variable representation itself) and package
// transform (the elementwise/reduction engine it reuses rather than
// re-implementing per-bin arithmetic from scratch).
package bins

import (
	"math"
	"sort"

	"github.com/jokasimr/scipp/dims"
	"github.com/jokasimr/scipp/index"
	"github.com/jokasimr/scipp/scipperr"
	"github.com/jokasimr/scipp/variable"
)

// Histogram1D bins coord's events into the intervals delimited by edges,
// summing weight into each bin (spec §4.F: "1-D histogram algorithm").
// edges must be strictly sorted ascending (otherwise this fails with a
// *scipperr.BinEdgeError); weight's
// unit must be counts or dimensionless and edges' unit must equal
// coord's, otherwise this fails with a *scipperr.UnitError. An event
// falling outside [edges[0], edges[last]) contributes to no bin.
//
// When edges are equally spaced it uses the O(1)-per-event fast path
// floor((x-offset)*scale); otherwise it falls back to a binary search
// (sort.Search, the Go analogue of std::upper_bound) per event.
func Histogram1D(coord, weight, edges variable.Variable) (variable.Variable, error) {
	if !edges.Unit().Equal(coord.Unit()) {
		return variable.Variable{}, scipperr.NewUnitError("histogram: edge unit %s does not match coordinate unit %s", edges.Unit(), coord.Unit())
	}
	if !weight.Unit().IsCounts() && !weight.Unit().IsDimensionless() {
		return variable.Variable{}, scipperr.NewUnitError("histogram: weight unit must be counts or dimensionless, got %s", weight.Unit())
	}
	if edges.Dims().NDim() != 1 {
		return variable.Variable{}, scipperr.NewDimensionError("histogram: edges must be 1-D, got %s", edges.Dims())
	}
	edgeDim := edges.Dims().DimAt(0)
	edgeVals := variable.Values[float64](edges)
	for j := 1; j < len(edgeVals); j++ {
		if !(edgeVals[j] > edgeVals[j-1]) {
			return variable.Variable{}, scipperr.NewBinEdgeError("histogram: edges must be strictly sorted ascending")
		}
	}
	nBins := int64(len(edgeVals)) - 1
	if nBins < 0 {
		nBins = 0
	}

	coordVals := variable.Values[float64](coord)
	weightVals := variable.Values[float64](weight)
	hasVariances := weight.HasVariances()
	var weightVar []float64
	if hasVariances {
		weightVar, _ = variable.Variances[float64](weight)
	}

	sums := make([]float64, nBins)
	var sumVar []float64
	if hasVariances {
		sumVar = make([]float64, nBins)
	}

	coordView, err := coord.View()
	if err != nil {
		return variable.Variable{}, err
	}
	weightView, err := weight.View()
	if err != nil {
		return variable.Variable{}, err
	}

	linear, scale, offset := detectLinearEdges(edgeVals)
	ci, wi := index.Begin(coordView), index.Begin(weightView)
	for ; !ci.Done(); ci.Increment() {
		x, w := coordVals[ci.Get()], wi.Get()
		wi.Increment()
		bin := -1
		switch {
		case linear:
			b := int(math.Floor((x - offset) * scale))
			if b >= 0 && int64(b) < nBins {
				bin = b
			}
		default:
			// upper_bound(edges, x) - 1: the index of the last edge <= x.
			u := sort.Search(len(edgeVals), func(j int) bool { return edgeVals[j] > x })
			b := u - 1
			if b >= 0 && int64(b) < nBins {
				bin = b
			}
		}
		if bin < 0 {
			continue
		}
		sums[bin] += weightVals[w]
		if hasVariances {
			sumVar[bin] += weightVar[w]
		}
	}

	var variances []float64
	if hasVariances {
		variances = sumVar
	}
	return variable.New(dims.Make(edgeDim, nBins), weight.Unit(), sums, variances)
}

// detectLinearEdges reports whether edges are equally spaced within a
// small relative tolerance, and if so returns the scale/offset the
// O(1) fast path needs: bin = floor((x-offset)*scale).
func detectLinearEdges(edges []float64) (linear bool, scale, offset float64) {
	if len(edges) < 2 {
		return false, 0, 0
	}
	step := edges[1] - edges[0]
	if step <= 0 {
		return false, 0, 0
	}
	const relTol = 1e-9
	for i := 1; i < len(edges)-1; i++ {
		d := edges[i+1] - edges[i]
		if math.Abs(d-step) > relTol*math.Abs(step) {
			return false, 0, 0
		}
	}
	return true, 1 / step, edges[0]
}

// Map looks up each of hist's bins for the event coordinates in coord
// (spec §4.F: "event -> histogram lookup"). edges and hist share the
// same edge Dim; an event outside [edges[0], edges[last]) maps to 0
// rather than erroring, the same "out-of-range is zero" rule
// Histogram1D's dropped events implement on the other side of the same
// lookup.
func Map(coord, edges, hist variable.Variable) (variable.Variable, error) {
	if !edges.Unit().Equal(coord.Unit()) {
		return variable.Variable{}, scipperr.NewUnitError("map: edge unit %s does not match coordinate unit %s", edges.Unit(), coord.Unit())
	}
	edgeVals := variable.Values[float64](edges)
	histVals := variable.Values[float64](hist)
	nBins := int64(len(histVals))
	if nBins != int64(len(edgeVals))-1 {
		return variable.Variable{}, scipperr.NewDimensionError("map: histogram has %d bins, edges imply %d", nBins, len(edgeVals)-1)
	}

	linear, scale, offset := detectLinearEdges(edgeVals)
	coordVals := variable.Values[float64](coord)
	out := make([]float64, len(coordVals))
	for i, x := range coordVals {
		bin := -1
		if linear {
			b := int(math.Floor((x - offset) * scale))
			if b >= 0 && int64(b) < nBins {
				bin = b
			}
		} else {
			u := sort.Search(len(edgeVals), func(j int) bool { return edgeVals[j] > x })
			b := u - 1
			if b >= 0 && int64(b) < nBins {
				bin = b
			}
		}
		if bin >= 0 {
			out[i] = histVals[bin]
		}
	}
	return variable.New(coord.Dims(), hist.Unit(), out, nil)
}
