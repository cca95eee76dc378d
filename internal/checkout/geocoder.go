package checkout

import (
	"context"
	"math/rand"
)

// Geocoder turns a delivery address into coordinates
type Geocoder interface {
	Locate(ctx context.Context, address string) (x, y float64, err error)
}

// RandomGeocoder is a placeholder: it ignores the address and draws each axis uniformly from [0,1)
type RandomGeocoder struct{}

func (RandomGeocoder) Locate(context.Context, string) (float64, float64, error) {
	return rand.Float64(), rand.Float64(), nil
}
