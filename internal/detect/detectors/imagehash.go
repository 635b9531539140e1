package detectors

import (
	"image"
	"math/bits"
)

// Hash64 is a 64-bit perceptual image hash.
type Hash64 uint64

// AverageHash reduces the image to an 8x8 luminance grid and sets a bit for
// every cell brighter than the grid mean.
func AverageHash(img image.Image) Hash64 {
	grid := luminanceGrid(img, 8, 8)
	var sum float64
	for _, value := range grid {
		sum += value
	}
	mean := sum / float64(len(grid))

	var hash Hash64
	for i, value := range grid {
		if value > mean {
			hash |= 1 << uint(i)
		}
	}
	return hash
}

// DifferenceHash reduces the image to a 9x8 luminance grid and sets a bit
// for every horizontal gradient increase.
func DifferenceHash(img image.Image) Hash64 {
	grid := luminanceGrid(img, 9, 8)
	var hash Hash64
	bit := 0
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			left := grid[row*9+col]
			right := grid[row*9+col+1]
			if right > left {
				hash |= 1 << uint(bit)
			}
			bit++
		}
	}
	return hash
}

// Similarity returns 1 minus the normalized hamming distance of two hashes.
func Similarity(a, b Hash64) float64 {
	return 1 - float64(bits.OnesCount64(uint64(a^b)))/64
}

// FrameSimilarity blends both hash families; the average hash captures
// overall structure, the difference hash captures edges.
func FrameSimilarity(avgA, diffA, avgB, diffB Hash64) float64 {
	return 0.6*Similarity(avgA, avgB) + 0.4*Similarity(diffA, diffB)
}

// luminanceGrid downsamples the image to cols x rows mean-luminance cells.
func luminanceGrid(img image.Image, cols, rows int) []float64 {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	grid := make([]float64, cols*rows)
	if width == 0 || height == 0 {
		return grid
	}

	for row := 0; row < rows; row++ {
		yStart := bounds.Min.Y + row*height/rows
		yEnd := bounds.Min.Y + (row+1)*height/rows
		if yEnd <= yStart {
			yEnd = yStart + 1
		}
		for col := 0; col < cols; col++ {
			xStart := bounds.Min.X + col*width/cols
			xEnd := bounds.Min.X + (col+1)*width/cols
			if xEnd <= xStart {
				xEnd = xStart + 1
			}
			var sum float64
			var count int
			for y := yStart; y < yEnd && y < bounds.Max.Y; y++ {
				for x := xStart; x < xEnd && x < bounds.Max.X; x++ {
					r, g, b, _ := img.At(x, y).RGBA()
					sum += 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
					count++
				}
			}
			if count > 0 {
				grid[row*cols+col] = sum / float64(count)
			}
		}
	}
	return grid
}
