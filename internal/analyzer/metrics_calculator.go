package analyzer

import (
	"image"
	"runtime"
	"sync"

	"github.com/anime-shed/stripreader/internal/vision"
	"gonum.org/v1/gonum/stat"
)

// metricsCalculator implements MetricsCalculator with Gonum statistics
type metricsCalculator struct {
	slicePool sync.Pool
}

// NewMetricsCalculator creates a new metrics calculator using Gonum
func NewMetricsCalculator() MetricsCalculator {
	return &metricsCalculator{
		slicePool: sync.Pool{
			New: func() interface{} {
				return make([]float64, 0, 1024)
			},
		},
	}
}

// CalculateLaplacianVariance returns the variance of the 4-neighbour
// Laplacian over the interior pixels; low values mean a blurry image
func (mc *metricsCalculator) CalculateLaplacianVariance(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 3 || height < 3 {
		return 0
	}

	data := mc.slicePool.Get().([]float64)
	defer func() { mc.slicePool.Put(data[:0]) }()

	if cap(data) < (width-2)*(height-2) {
		data = make([]float64, 0, (width-2)*(height-2))
	}

	// Laplacian kernel: [0, 1, 0; 1, -4, 1; 0, 1, 0]
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			center := float64(gray.GrayAt(x, y).Y)
			top := float64(gray.GrayAt(x, y-1).Y)
			bottom := float64(gray.GrayAt(x, y+1).Y)
			left := float64(gray.GrayAt(x-1, y).Y)
			right := float64(gray.GrayAt(x+1, y).Y)

			data = append(data, -4*center+top+bottom+left+right)
		}
	}

	return stat.Variance(data, nil)
}

// CalculateBrightness returns the mean HSV value channel on the 0-255 scale.
// Rows are summed in parallel; every row has the same width so the mean of
// row means is the image mean.
func (mc *metricsCalculator) CalculateBrightness(img image.Image) float64 {
	nrgba := toNRGBA(img)
	bounds := nrgba.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return 0
	}

	rowMeans := make([]float64, height)

	numWorkers := runtime.NumCPU()
	if height < numWorkers {
		numWorkers = height
	}
	rowsPerWorker := (height + numWorkers - 1) / numWorkers // ceil division

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		startRow := i * rowsPerWorker
		endRow := min(startRow+rowsPerWorker, height)
		if startRow >= endRow {
			break
		}
		wg.Add(1)
		go func(startRow, endRow int) {
			defer wg.Done()
			for r := startRow; r < endRow; r++ {
				y := bounds.Min.Y + r
				row := nrgba.Pix[nrgba.PixOffset(bounds.Min.X, y):nrgba.PixOffset(bounds.Max.X, y)]
				var sum float64
				for j := 0; j < len(row); j += 4 {
					_, _, v := vision.HSV8(row[j], row[j+1], row[j+2])
					sum += v
				}
				rowMeans[r] = sum / float64(width)
			}
		}(startRow, endRow)
	}
	wg.Wait()

	return stat.Mean(rowMeans, nil)
}
