package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Corner is one corner of a bounding box in the feed's [lat, lon] order.
type Corner struct {
	Lat float64
	Lon float64
}

// BoundingBox is a rectangular subscription region.
// JSON form is [[lat, lon], [lat, lon]] as expected by the feed.
type BoundingBox struct {
	SouthWest Corner
	NorthEast Corner
}

// DefaultBoundingBox covers the Red Sea and the Gulf of Aden approaches.
var DefaultBoundingBox = BoundingBox{
	SouthWest: Corner{Lat: 11.603304207355961, Lon: 30.40921772695401},
	NorthEast: Corner{Lat: 31.844734608073395, Lon: 44.75088774620332},
}

// ErrInvalidBoundingBox is returned when corners are out of range or malformed.
var ErrInvalidBoundingBox = errors.New("invalid bounding box")

// Validate checks that both corners are valid WGS 84 coordinates.
func (b BoundingBox) Validate() error {
	for _, c := range []Corner{b.SouthWest, b.NorthEast} {
		if c.Lat < -90 || c.Lat > 90 {
			return fmt.Errorf("%w: latitude %v out of range", ErrInvalidBoundingBox, c.Lat)
		}
		if c.Lon < -180 || c.Lon > 180 {
			return fmt.Errorf("%w: longitude %v out of range", ErrInvalidBoundingBox, c.Lon)
		}
	}
	return nil
}

// MarshalJSON encodes the box as [[lat, lon], [lat, lon]].
func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([2][2]float64{
		{b.SouthWest.Lat, b.SouthWest.Lon},
		{b.NorthEast.Lat, b.NorthEast.Lon},
	})
}

// UnmarshalJSON decodes a [[lat, lon], [lat, lon]] box.
func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var raw [][]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBoundingBox, err)
	}
	box, err := BoundingBoxFromPairs(raw)
	if err != nil {
		return err
	}
	*b = box
	return nil
}

// BoundingBoxFromPairs builds a box from two [lat, lon] pairs.
func BoundingBoxFromPairs(pairs [][]float64) (BoundingBox, error) {
	if len(pairs) != 2 || len(pairs[0]) != 2 || len(pairs[1]) != 2 {
		return BoundingBox{}, fmt.Errorf("%w: expected [[lat, lon], [lat, lon]]", ErrInvalidBoundingBox)
	}
	box := BoundingBox{
		SouthWest: Corner{Lat: pairs[0][0], Lon: pairs[0][1]},
		NorthEast: Corner{Lat: pairs[1][0], Lon: pairs[1][1]},
	}
	if err := box.Validate(); err != nil {
		return BoundingBox{}, err
	}
	return box, nil
}

// ParseBoundingBox parses the JSON form used by the AIS_BBOX variable.
func ParseBoundingBox(s string) (BoundingBox, error) {
	var raw [][]float64
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return BoundingBox{}, fmt.Errorf("%w: %v", ErrInvalidBoundingBox, err)
	}
	return BoundingBoxFromPairs(raw)
}
