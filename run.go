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

	"github.com/ctessum/geom"
	"gonum.org/v1/gonum/floats"
)

// EarthRadius is the radius of the spherical earth used to convert
// displacements to degrees [m].
const EarthRadius = 6371e3

const degPerRad = 180 / math.Pi

// Step returns a function that advances the simulation by one time step:
// it samples the environment at the live elements, lets the model update
// their positions, applies horizontal diffusion, and advances the clock.
func Step() DomainManipulator {
	return func(s *Simulation) error {
		idx := s.Elements.Live()
		s.env = s.SampleEnvironment(s.Model.RequiredVariables(), idx)
		c := &stepContext{s: s, idx: idx}
		s.Model.Update(c)
		if c.err != nil {
			return c.err
		}
		if c.calls == 0 {
			return fmt.Errorf("drift: model %T did not update positions", s.Model)
		}
		s.diffuse(idx)
		s.Time = s.Time.Add(s.Dt)
		s.Steps++
		return nil
	}
}

// stepContext is the StepContext handed to the model during one step.
type stepContext struct {
	s     *Simulation
	idx   []int // live elements
	calls int
	err   error
}

func (c *stepContext) Env() *Environment { return c.s.env }

func (c *stepContext) Property(name string) []float64 {
	p, ok := c.s.Elements.Properties[name]
	if !ok {
		return nil
	}
	return gather(p, c.idx)
}

// UpdatePositions moves the live elements with forward Euler integration,
// after limiting each velocity magnitude to the configured maximum speed.
func (c *stepContext) UpdatePositions(u, v []float64) {
	c.calls++
	if c.calls > 1 {
		c.err = fmt.Errorf("drift: model %T updated positions %d times in one step", c.s.Model, c.calls)
		return
	}
	if len(u) != len(c.idx) || len(v) != len(c.idx) {
		c.err = fmt.Errorf("drift: model %T returned %d u and %d v velocities for %d elements",
			c.s.Model, len(u), len(v), len(c.idx))
		return
	}
	dt := c.s.Dt.Seconds()
	maxSpeed := c.s.Config.MaxSpeed
	for i, ii := range c.idx {
		ui, vi := u[i], v[i]
		if speed := math.Hypot(ui, vi); speed > maxSpeed {
			ui *= maxSpeed / speed
			vi *= maxSpeed / speed
		}
		c.s.move(ii, ui*dt, vi*dt)
	}
}

// move displaces element i by dx metres east and dy metres north.
// Elements crossing a pole come out on the other side of it.
func (s *Simulation) move(i int, dx, dy float64) {
	lat := s.Elements.Lat[i]
	cosLat := math.Max(math.Cos(lat/degPerRad), minCosLat)
	lon := s.Elements.Lon[i] + dx/(EarthRadius*cosLat)*degPerRad
	lat += dy / EarthRadius * degPerRad
	switch {
	case lat > 90:
		lat, lon = 180-lat, lon+180
	case lat < -90:
		lat, lon = -180-lat, lon+180
	}
	s.Elements.Lon[i], s.Elements.Lat[i] = wrapLon(lon), lat
}

// minCosLat keeps eastward moves finite at the poles.
const minCosLat = 1e-9

// wrapLon returns lon in [-180, 180).
func wrapLon(lon float64) float64 {
	if lon >= -180 && lon < 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}

// diffuse applies a random walk with standard deviation sqrt(2 K dt) in
// each horizontal direction.
func (s *Simulation) diffuse(idx []int) {
	k := s.Config.HorizontalDiffusivity
	if k == 0 {
		return
	}
	sigma := math.Sqrt(2 * k * s.Dt.Seconds())
	for _, i := range idx {
		s.move(i, s.rand.NormFloat64()*sigma, s.rand.NormFloat64()*sigma)
	}
}

// StopAfter returns a function that sets s.Done once the given number of
// steps have been completed. It should come before Step in s.RunFuncs so
// that a simulation that has already taken enough steps, for example one
// loaded from a saved state, takes no more.
func StopAfter(steps int) DomainManipulator {
	return func(s *Simulation) error {
		if steps <= 0 {
			return fmt.Errorf("drift: number of steps must be positive but is %d", steps)
		}
		if s.Steps >= steps {
			s.Done = true
		}
		return nil
	}
}

// RunPeriodically returns a function that runs f each time another period
// of simulated time has accumulated. Time left over when period is not a
// multiple of the time step counts towards the next run.
func RunPeriodically(period time.Duration, f DomainManipulator) DomainManipulator {
	var timeSinceLastRun time.Duration
	return func(s *Simulation) error {
		timeSinceLastRun += s.Dt
		if timeSinceLastRun >= period {
			timeSinceLastRun -= period
			return f(s)
		}
		return nil
	}
}

// DeactivateOutside returns a function that sets the status of live
// elements outside of b (in degrees longitude and latitude) to Outside.
func DeactivateOutside(b *geom.Bounds) DomainManipulator {
	return func(s *Simulation) error {
		for _, i := range s.Elements.Live() {
			p := geom.Point{X: s.Elements.Lon[i], Y: s.Elements.Lat[i]}
			if !b.Overlaps(p.Bounds()) {
				s.Elements.Status[i] = Outside
			}
		}
		return nil
	}
}

// SimulationStatus holds information about the progress of a simulation.
type SimulationStatus struct {
	Step             int
	Time             time.Time
	Walltime         time.Duration
	StepWalltime     time.Duration
	Active, Total    int
	MeanLon, MeanLat float64 // of the active elements
}

func (s *SimulationStatus) String() string {
	return fmt.Sprintf("Step %-4d  walltime=%6.3gh  Δwalltime=%4.2gs  "+
		"time=%s  active=%d/%d  mean position=(%.4f, %.4f)",
		s.Step, s.Walltime.Hours(), s.StepWalltime.Seconds(), s.Time.Format(time.RFC3339),
		s.Active, s.Total, s.MeanLon, s.MeanLat)
}

// Log returns a function that sends simulation status messages to c.
func Log(c chan *SimulationStatus) DomainManipulator {
	startTime := time.Now()
	timeStepTime := time.Now()

	return func(s *Simulation) error {
		idx := s.Elements.Live()
		lon, lat := gather(s.Elements.Lon, idx), gather(s.Elements.Lat, idx)
		status := &SimulationStatus{
			Step:         s.Steps,
			Time:         s.Time,
			Walltime:     time.Since(startTime),
			StepWalltime: time.Since(timeStepTime),
			Active:       len(idx),
			Total:        s.Elements.Len(),
		}
		if len(idx) > 0 {
			status.MeanLon = floats.Sum(lon) / float64(len(idx))
			status.MeanLat = floats.Sum(lat) / float64(len(idx))
		}
		c <- status
		timeStepTime = time.Now()
		return nil
	}
}
