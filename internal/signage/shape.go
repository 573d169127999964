package signage

import "fmt"

// ShapeTag is the discrete image geometry handed to the generation backend.
// The values are the image_size identifiers the flux models accept.
type ShapeTag string

const (
	ShapeWideUltra    ShapeTag = "landscape_21_9"
	ShapeWide         ShapeTag = "landscape_16_9"
	ShapeWideModerate ShapeTag = "landscape_4_3"
	ShapeSquare       ShapeTag = "square_hd"
	ShapeTallModerate ShapeTag = "portrait_4_3"
	ShapeTall         ShapeTag = "portrait_16_9"
)

// shapeThresholds maps a minimum width/height ratio to a shape, ordered from
// widest to tallest. Resolution walks the table top down and takes the first
// bucket whose threshold the ratio meets; ShapeTall is the catch-all.
var shapeThresholds = []struct {
	minRatio float64
	shape    ShapeTag
}{
	{2.2, ShapeWideUltra},
	{1.6, ShapeWide},
	{1.2, ShapeWideModerate},
	{0.9, ShapeSquare},
	{0.5, ShapeTallModerate},
}

// ResolveShape buckets physical signboard dimensions (in meters) into the
// aspect-ratio tag best matching them. Non-positive dimensions are an input
// error, never a panic.
func ResolveShape(widthM, heightM float64) (ShapeTag, error) {
	if widthM <= 0 {
		return "", fmt.Errorf("width must be positive, got %v", widthM)
	}
	if heightM <= 0 {
		return "", fmt.Errorf("height must be positive, got %v", heightM)
	}

	ratio := widthM / heightM
	for _, t := range shapeThresholds {
		if ratio >= t.minRatio {
			return t.shape, nil
		}
	}
	return ShapeTall, nil
}
