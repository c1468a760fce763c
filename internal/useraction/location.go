package useraction

import "fmt"

// Location is a point in a named world on a named server.
type Location struct {
	Server string  `json:"server"`
	World  string  `json:"world"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s/%s(%.1f, %.1f, %.1f)", l.Server, l.World, l.X, l.Y, l.Z)
}
