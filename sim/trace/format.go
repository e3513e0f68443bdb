package trace

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// FormatDistanceMatrix renders the matrix as aligned rows, one clone per row.
func FormatDistanceMatrix(record DistanceMatrixRecord) string {
	n := len(record.Distances)
	if n == 0 {
		return ""
	}
	data := make([]float64, 0, n*n)
	for _, row := range record.Distances {
		for _, d := range row {
			data = append(data, float64(d))
		}
	}
	m := mat.NewDense(n, n, data)
	return fmt.Sprintf("%v\n", mat.Formatted(m, mat.Squeeze()))
}

// FormatHierarchy renders the parent table as "parent - child: weight" lines.
func FormatHierarchy(records []HierarchyEdgeRecord) string {
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "%d - %d: %d\n", r.Parent, r.Child, r.Weight)
	}
	return b.String()
}
