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

package drift

import (
	"fmt"
	"math"
	"time"
)

// SeedConfig specifies where and how many elements to release.
type SeedConfig struct {
	// Lon and Lat are the center of the release [degrees].
	Lon, Lat float64

	// Radius is the radius of the release disk [m]. The elements are
	// distributed uniformly over its area.
	Radius float64

	// Number is the number of elements to release.
	Number int

	// Z is the depth of the elements [m]. If ZMin < ZMax, depths are
	// instead drawn uniformly between them.
	Z, ZMin, ZMax float64

	// Time is the release time. If it is zero the current simulation time
	// is kept.
	Time time.Time

	// Properties overrides the element type's property defaults.
	Properties map[string]float64
}

// SeedElements returns a function that adds elements as specified by c.
func SeedElements(c SeedConfig) DomainManipulator {
	return func(s *Simulation) error {
		if c.Number < 0 {
			return fmt.Errorf("drift: number of elements to seed must not be negative but is %d", c.Number)
		}
		if c.Radius < 0 {
			return fmt.Errorf("drift: seeding radius must not be negative but is %g", c.Radius)
		}
		if c.Lat <= -90 || c.Lat >= 90 {
			return fmt.Errorf("drift: seeding latitude %g is out of range", c.Lat)
		}
		props := make(map[string]float64)
		for _, p := range s.Model.ElementType().Properties() {
			props[p.Name] = p.Default
		}
		for name, v := range c.Properties {
			if _, ok := props[name]; !ok {
				return fmt.Errorf("drift: element type %s has no property %q",
					s.Model.ElementType().Name(), name)
			}
			props[name] = v
		}
		if !c.Time.IsZero() && s.Time.IsZero() {
			s.StartTime, s.Time = c.Time, c.Time
		}

		cosLat := math.Cos(c.Lat / degPerRad)
		for i := 0; i < c.Number; i++ {
			r := c.Radius * math.Sqrt(s.rand.Float64())
			theta := 2 * math.Pi * s.rand.Float64()
			dx, dy := r*math.Cos(theta), r*math.Sin(theta)
			lon := c.Lon + dx/(EarthRadius*cosLat)*degPerRad
			lat := c.Lat + dy/EarthRadius*degPerRad
			z := c.Z
			if c.ZMin < c.ZMax {
				z = c.ZMin + (c.ZMax-c.ZMin)*s.rand.Float64()
			}
			s.Elements.add(wrapLon(lon), lat, z, props)
		}
		s.Log.Infof("drift: seeded %d %s elements within %g m of (%g, %g)",
			c.Number, s.Model.ElementType().Name(), c.Radius, c.Lon, c.Lat)
		return nil
	}
}
