package sim

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/sirupsen/logrus"
)

type IntOrFloat64 interface {
	int | int64 | float64
}

// CalculatePercentile returns the p-th percentile of data by linear
// interpolation between closest ranks. data need not be sorted.
func CalculatePercentile[T IntOrFloat64](data []T, p float64) float64 {
	n := len(data)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(data)
	slices.Sort(sorted)

	rank := p / 100.0 * float64(n-1)
	lowerIdx := int(math.Floor(rank))
	upperIdx := int(math.Ceil(rank))
	if upperIdx >= n {
		return float64(sorted[n-1])
	}
	if lowerIdx == upperIdx {
		return float64(sorted[lowerIdx])
	}
	lowerVal, upperVal := float64(sorted[lowerIdx]), float64(sorted[upperIdx])
	return lowerVal + (upperVal-lowerVal)*(rank-float64(lowerIdx))
}

// CalculateMean returns the arithmetic mean, or 0 for an empty list.
func CalculateMean[T IntOrFloat64](numbers []T) float64 {
	if len(numbers) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, number := range numbers {
		sum += float64(number)
	}
	return sum / float64(len(numbers))
}

// SaveOwnedSeries writes one line per tick with the owned count of every
// clone, comma separated in clone id order.
func (m *Metrics) SaveOwnedSeries(fileName string) (err error) {
	file, err := os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", fileName, err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", fileName, closeErr)
		}
	}()

	writer := bufio.NewWriter(file)
	for t := 0; t < m.Ticks; t++ {
		fmt.Fprint(writer, t+1)
		for _, series := range m.OwnedSeries {
			if t < len(series) {
				fmt.Fprint(writer, ",", series[t])
			} else {
				fmt.Fprint(writer, ",")
			}
		}
		fmt.Fprintln(writer)
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", fileName, err)
	}
	logrus.Debugf("wrote owned series to %s", fileName)
	return nil
}
