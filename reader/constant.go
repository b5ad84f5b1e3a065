/*
Copyright © 2026 the Drift authors.
This file is part of Drift.

Drift is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Drift is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Drift.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package reader provides sources of environment data for drift
// simulations.
package reader

import (
	"time"

	"github.com/ctessum/geom"
)

// Constant provides fixed values of environment variables.
type Constant struct {
	// Label is the reader name.
	Label string

	// Values holds the value of each variable.
	Values map[string]float64

	// Bounds limits the coverage in longitude (X) and latitude (Y). If
	// it is nil the reader covers everywhere.
	Bounds *geom.Bounds

	// Start and End limit the coverage in time. Zero values leave the
	// corresponding side unbounded.
	Start, End time.Time
}

// Name returns the reader label.
func (c *Constant) Name() string {
	if c.Label == "" {
		return "constant"
	}
	return c.Label
}

// Provides reports whether variable is in c.Values.
func (c *Constant) Provides(variable string) bool {
	_, ok := c.Values[variable]
	return ok
}

// Sample returns the constant value of variable at each position that is
// within c.Bounds, if t is within the time limits.
func (c *Constant) Sample(variable string, t time.Time, lon, lat, z []float64) ([]float64, []bool, error) {
	values := make([]float64, len(lon))
	covered := make([]bool, len(lon))
	v, ok := c.Values[variable]
	if !ok || !c.coversTime(t) {
		return values, covered, nil
	}
	for i := range lon {
		if c.Bounds != nil && !c.Bounds.Overlaps(geom.Point{X: lon[i], Y: lat[i]}.Bounds()) {
			continue
		}
		values[i], covered[i] = v, true
	}
	return values, covered, nil
}

func (c *Constant) coversTime(t time.Time) bool {
	if !c.Start.IsZero() && t.Before(c.Start) {
		return false
	}
	if !c.End.IsZero() && t.After(c.End) {
		return false
	}
	return true
}
