package domain

// Track is the ordered position history of one vessel.
// Positions are in arrival order and the slice is never empty once the
// track exists.
type Track struct {
	ShipID    ShipID
	Positions []Position
}

// Len returns the number of positions in the track.
func (t Track) Len() int {
	return len(t.Positions)
}
