package detectors

import (
	"image"
	"image/color"
	"testing"
)

func gradientImage(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 255 / width)})
		}
	}
	return img
}

func flatImage(width, height int, level uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: level})
		}
	}
	return img
}

func TestIdenticalImagesFullySimilar(t *testing.T) {
	a := gradientImage(64, 64)
	b := gradientImage(64, 64)

	if got := Similarity(AverageHash(a), AverageHash(b)); got != 1 {
		t.Errorf("average hash similarity = %f, want 1", got)
	}
	if got := Similarity(DifferenceHash(a), DifferenceHash(b)); got != 1 {
		t.Errorf("difference hash similarity = %f, want 1", got)
	}
}

func TestScaledImageStaysSimilar(t *testing.T) {
	a := gradientImage(64, 64)
	b := gradientImage(320, 240)

	got := FrameSimilarity(AverageHash(a), DifferenceHash(a), AverageHash(b), DifferenceHash(b))
	if got < 0.9 {
		t.Errorf("frame similarity across scales = %f, want >= 0.9", got)
	}
}

func TestDifferenceHashCapturesGradientDirection(t *testing.T) {
	// Every horizontal step in a left-to-right gradient increases, so
	// all 64 gradient bits are set.
	hash := DifferenceHash(gradientImage(64, 64))
	if hash != Hash64(0xFFFFFFFFFFFFFFFF) {
		t.Errorf("gradient difference hash = %x, want all bits set", uint64(hash))
	}
}

func TestFlatAndGradientImagesDiverge(t *testing.T) {
	flat := flatImage(64, 64, 128)
	grad := gradientImage(64, 64)

	got := Similarity(DifferenceHash(flat), DifferenceHash(grad))
	if got > 0.5 {
		t.Errorf("flat vs gradient difference similarity = %f, want <= 0.5", got)
	}
}

func TestBestAlignmentFindsOffset(t *testing.T) {
	reference := []uint32{0xDEADBEEF, 0x12345678, 0xCAFEBABE, 0x0F0F0F0F}
	candidate := make([]uint32, 0, 12)
	for i := 0; i < 4; i++ {
		candidate = append(candidate, 0xAAAA5555)
	}
	candidate = append(candidate, reference...)
	for i := 0; i < 4; i++ {
		candidate = append(candidate, 0x5555AAAA)
	}

	score, offset := bestAlignment(reference, candidate)
	if offset != 4 {
		t.Errorf("offset = %d, want 4", offset)
	}
	if score != 1 {
		t.Errorf("score = %f, want 1 for an exact match", score)
	}
}

func TestBestAlignmentRejectsNoise(t *testing.T) {
	reference := []uint32{0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF}
	candidate := []uint32{0xAAAAAAAA, 0x55555555, 0xAAAAAAAA, 0x55555555, 0xAAAAAAAA}

	score, _ := bestAlignment(reference, candidate)
	if score >= fpMatchThreshold {
		t.Errorf("score = %f, want below the %f match threshold", score, fpMatchThreshold)
	}
}
