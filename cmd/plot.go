package cmd

import (
	"fmt"
	"log"
	"strconv"

	"github.com/guptarohit/asciigraph"

	"github.com/CraigKelly/hmc2d/model"
)

const (
	plotHeight = 12
	plotWidth  = 80
)

func fmtFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

// plotChains draws one trace plot per axis with every chain overlaid
func plotChains(out *log.Logger, chains [][]model.Vec) {
	for axis, name := range []string{"x", "y"} {
		series := make([][]float64, 0, len(chains))
		for _, samples := range chains {
			if len(samples) < 1 {
				continue
			}
			vals := make([]float64, len(samples))
			for i, s := range samples {
				vals[i] = s.Axis(axis)
			}
			series = append(series, vals)
		}
		if len(series) < 1 {
			out.Printf("Nothing to plot for %s\n", name)
			return
		}

		graph := asciigraph.PlotMany(series,
			asciigraph.Height(plotHeight),
			asciigraph.Width(plotWidth),
			asciigraph.Caption(fmt.Sprintf("%s trace (%d chains)", name, len(series))),
		)
		out.Println(graph)
		out.Println()
	}
}
