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
	"encoding/gob"
	"fmt"
	"io"
	"time"
)

// savedState is the part of a Simulation that is saved.
type savedState struct {
	Elements  *Elements
	StartTime time.Time
	Time      time.Time
	Steps     int
}

// Save returns a function that saves the elements and clock of the
// simulation to w as a gob file
// (format description at https://golang.org/pkg/encoding/gob/).
func Save(w io.Writer) DomainManipulator {
	return func(s *Simulation) error {
		e := gob.NewEncoder(w)
		st := savedState{
			Elements:  s.Elements,
			StartTime: s.StartTime,
			Time:      s.Time,
			Steps:     s.Steps,
		}
		if err := e.Encode(st); err != nil {
			return fmt.Errorf("drift.Save: %v", err)
		}
		return nil
	}
}

// Load returns a function that loads the data from a previously Saved file
// into a simulation. The saved elements must be of the simulation's
// element type.
func Load(r io.Reader) DomainManipulator {
	return func(s *Simulation) error {
		dec := gob.NewDecoder(r)
		var st savedState
		if err := dec.Decode(&st); err != nil {
			return fmt.Errorf("drift.Load: %v", err)
		}
		if want := s.Model.ElementType().Name(); st.Elements.Type != want {
			return fmt.Errorf("drift.Load: saved elements are of type %s but the model uses %s",
				st.Elements.Type, want)
		}
		if st.Elements.Properties == nil {
			st.Elements.Properties = make(map[string][]float64)
		}
		for _, p := range s.Model.ElementType().Properties() {
			if len(st.Elements.Properties[p.Name]) != st.Elements.Len() {
				return fmt.Errorf("drift.Load: saved elements are missing property %s", p.Name)
			}
		}
		s.Elements = st.Elements
		s.StartTime, s.Time, s.Steps = st.StartTime, st.Time, st.Steps
		return nil
	}
}
