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
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// A Reader provides environment variables at element positions.
type Reader interface {
	// Name identifies the reader in log messages.
	Name() string

	// Provides reports whether the reader has data for the variable.
	Provides(variable string) bool

	// Sample returns the value of variable at each of the given positions
	// at time t. covered[i] is false where the reader has no data for
	// position i, in which case values[i] is ignored.
	Sample(variable string, t time.Time, lon, lat, z []float64) (values []float64, covered []bool, err error)
}

// Environment is the environment sampled at the live elements at one time.
// Every variable has exactly Len values, one per live element.
type Environment struct {
	Time   time.Time
	n      int
	fields map[string][]float64
}

// NewEnvironment returns an environment sample of n rows holding fields.
// It panics if any field does not have n values.
func NewEnvironment(t time.Time, n int, fields map[string][]float64) *Environment {
	for name, f := range fields {
		if len(f) != n {
			panic("drift: environment field " + name + " has the wrong length")
		}
	}
	return &Environment{Time: t, n: n, fields: fields}
}

// Len returns the number of rows.
func (e *Environment) Len() int { return e.n }

// Get returns the values of the named variable. It returns nil if the
// variable was not sampled.
func (e *Environment) Get(name string) []float64 { return e.fields[name] }

// SampleEnvironment returns the value of each variable in vars at the
// elements with the given indices. For each variable, the readers are asked
// in order for the elements not covered so far; the fallback is used for
// any element no reader covers. Reader errors are logged and treated as
// missing coverage.
func (s *Simulation) SampleEnvironment(vars RequiredVariables, idx []int) *Environment {
	lon := make([]float64, len(idx))
	lat := make([]float64, len(idx))
	z := make([]float64, len(idx))
	for i, ii := range idx {
		lon[i], lat[i], z[i] = s.Elements.Lon[ii], s.Elements.Lat[ii], s.Elements.Z[ii]
	}

	fields := make(map[string][]float64, len(vars))
	for _, name := range vars.Names() {
		vals := make([]float64, len(idx))
		// missing holds the rows no reader has covered yet.
		missing := make([]int, len(idx))
		for i := range missing {
			missing[i] = i
		}
		for _, r := range s.Readers {
			if len(missing) == 0 {
				break
			}
			if !r.Provides(name) {
				continue
			}
			mLon, mLat, mZ := gather(lon, missing), gather(lat, missing), gather(z, missing)
			v, covered, err := r.Sample(name, s.Time, mLon, mLat, mZ)
			if err == nil && (len(v) != len(missing) || len(covered) != len(missing)) {
				err = errWrongLength
			}
			if err != nil {
				s.Log.WithFields(logrus.Fields{
					"reader":   r.Name(),
					"variable": name,
					"time":     s.Time,
				}).Warnf("drift: reader failed, treating as no coverage: %v", err)
				continue
			}
			var still []int
			for j, row := range missing {
				if covered[j] {
					vals[row] = v[j]
				} else {
					still = append(still, row)
				}
			}
			missing = still
		}
		for _, row := range missing {
			vals[row] = vars[name].Fallback
		}
		fields[name] = vals
	}
	return NewEnvironment(s.Time, len(idx), fields)
}

var errWrongLength = errors.New("returned the wrong number of values")

func gather(x []float64, idx []int) []float64 {
	o := make([]float64, len(idx))
	for i, ii := range idx {
		o[i] = x[ii]
	}
	return o
}
