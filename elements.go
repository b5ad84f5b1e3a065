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

import "fmt"

// Status is the life-cycle state of an element.
type Status int

// Element statuses. Only Active elements are sampled and moved.
const (
	Active Status = iota
	Stranded
	Settled
	Outside
)

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Stranded:
		return "stranded"
	case Settled:
		return "settled"
	case Outside:
		return "outside"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Property is a per-element attribute carried by an element type.
type Property struct {
	Name    string
	Units   string
	Default float64
}

// ElementType describes a kind of element.
type ElementType interface {
	Name() string
	Properties() []Property
}

// PassiveTracer is an element with no properties of its own, moved only by
// the model's forcing.
type PassiveTracer struct{}

// Name returns "PassiveTracer".
func (PassiveTracer) Name() string { return "PassiveTracer" }

// Properties returns nil.
func (PassiveTracer) Properties() []Property { return nil }

// Drifter is a surface drifter that is additionally pushed by the wind.
type Drifter struct{}

// Name returns "Drifter".
func (Drifter) Name() string { return "Drifter" }

// Properties returns the wind drift factor, the fraction of the wind
// velocity that is added to the element velocity.
func (Drifter) Properties() []Property {
	return []Property{
		{Name: "wind_drift_factor", Units: "1", Default: 0.02},
	}
}

// Elements holds the state of all elements in a simulation, one slice
// entry per element. ID is the seeding order.
type Elements struct {
	Type        string
	ID          []int
	Lon, Lat, Z []float64 // degrees, degrees, m (negative below the surface)
	Lon0, Lat0  []float64 // seeding position
	Status      []Status
	Properties  map[string][]float64
}

// NewElements returns an empty ensemble of elements of type t.
func NewElements(t ElementType) *Elements {
	e := &Elements{
		Type:       t.Name(),
		Properties: make(map[string][]float64),
	}
	for _, p := range t.Properties() {
		e.Properties[p.Name] = []float64{}
	}
	return e
}

// Len returns the number of elements.
func (e *Elements) Len() int { return len(e.ID) }

// add appends one element. props must have a value for every property.
func (e *Elements) add(lon, lat, z float64, props map[string]float64) {
	e.ID = append(e.ID, len(e.ID))
	e.Lon = append(e.Lon, lon)
	e.Lat = append(e.Lat, lat)
	e.Z = append(e.Z, z)
	e.Lon0 = append(e.Lon0, lon)
	e.Lat0 = append(e.Lat0, lat)
	e.Status = append(e.Status, Active)
	for name := range e.Properties {
		e.Properties[name] = append(e.Properties[name], props[name])
	}
}

// Live returns the indices of the active elements.
func (e *Elements) Live() []int {
	var o []int
	for i, s := range e.Status {
		if s == Active {
			o = append(o, i)
		}
	}
	return o
}

// Count returns the number of elements with status st.
func (e *Elements) Count(st Status) int {
	var n int
	for _, s := range e.Status {
		if s == st {
			n++
		}
	}
	return n
}
