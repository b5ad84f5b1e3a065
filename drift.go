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

// Package drift is a Lagrangian particle-drift model. Particles (elements)
// are moved through time by a Model, which receives the environment sampled
// at the particle positions every time step and returns velocities to the
// engine's position update.
package drift

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// Version gives the version number.
const Version = "0.3.0"

// DomainManipulator is a class of functions that operate on the entire
// simulation.
type DomainManipulator func(s *Simulation) error

// Simulation holds the current state of a drift simulation.
type Simulation struct {
	// Model is the force update rule that moves the elements.
	Model Model

	// Config is the resolved configuration. It must not be changed after
	// NewSimulation returns.
	Config Config

	// Readers are the environment sources, queried in order.
	Readers []Reader

	// Elements are the particles in the simulation.
	Elements *Elements

	// StartTime is the time the simulation begins; Time is the current
	// simulation time.
	StartTime, Time time.Time

	// Dt is the time step.
	Dt time.Duration

	// Steps is the number of steps that have been completed.
	Steps int

	// Done specifies whether the simulation is finished.
	Done bool

	// InitFuncs are functions to be called in the given order
	// at the beginning of the simulation.
	InitFuncs []DomainManipulator

	// RunFuncs are functions to be called in the given order repeatedly
	// until "Done" is true. Therefore, at least one of the functions
	// should set "Done" to true, or the simulation will run forever.
	RunFuncs []DomainManipulator

	// CleanupFuncs are functions to be called in the given order
	// after the simulation has completed.
	CleanupFuncs []DomainManipulator

	// Log receives warnings and progress messages.
	Log logrus.FieldLogger

	env  *Environment // most recent environment sample
	rand *rand.Rand
}

// NewSimulation returns a simulation driven by m. The configuration is
// built from the engine defaults, overridden by the defaults m registers,
// overridden in turn by options. Unrecognized option names and invalid
// values result in an error.
func NewSimulation(m Model, options map[string]interface{}) (*Simulation, error) {
	if m == nil {
		return nil, fmt.Errorf("drift: nil model")
	}
	c := DefaultConfig()
	if err := m.SetDefaults(&c); err != nil {
		return nil, fmt.Errorf("drift: setting model defaults: %v", err)
	}
	if err := c.SetAll(options); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Simulation{
		Model:    m,
		Config:   c,
		Elements: NewElements(m.ElementType()),
		Log:      logrus.StandardLogger(),
		rand:     rand.New(rand.NewSource(c.Seed)),
	}, nil
}

// Init initializes the simulation by running s.InitFuncs.
func (s *Simulation) Init() error {
	if s.Log == nil {
		s.Log = logrus.StandardLogger()
	}
	if s.rand == nil {
		s.rand = rand.New(rand.NewSource(s.Config.Seed))
	}
	if s.Elements == nil {
		s.Elements = NewElements(s.Model.ElementType())
	}
	for i, f := range s.InitFuncs {
		if err := f(s); err != nil {
			return fmt.Errorf("drift: problem initializing simulation (InitFunc %d): %v", i, err)
		}
	}
	return nil
}

// Run carries out the simulation by running s.RunFuncs until s.Done is true.
// The remaining functions of an iteration are skipped once s.Done is set.
func (s *Simulation) Run() error {
	if s.Dt <= 0 {
		return fmt.Errorf("drift: time step must be positive but is %v", s.Dt)
	}
	if s.Time.IsZero() {
		return fmt.Errorf("drift: simulation start time is not set")
	}
	for !s.Done {
		for i, f := range s.RunFuncs {
			if s.Done {
				break
			}
			if err := f(s); err != nil {
				return fmt.Errorf("drift: problem running simulation (RunFunc %d, step %d): %v", i, s.Steps, err)
			}
		}
	}
	return nil
}

// Cleanup finishes the simulation by running s.CleanupFuncs.
func (s *Simulation) Cleanup() error {
	for i, f := range s.CleanupFuncs {
		if err := f(s); err != nil {
			return fmt.Errorf("drift: problem cleaning up simulation (CleanupFunc %d): %v", i, err)
		}
	}
	return nil
}

// SetTime returns a function that sets the simulation start time and
// time step. If start is zero the current clock is kept.
func SetTime(start time.Time, dt time.Duration) DomainManipulator {
	return func(s *Simulation) error {
		if dt <= 0 {
			return fmt.Errorf("drift: time step must be positive but is %v", dt)
		}
		if !start.IsZero() {
			s.StartTime, s.Time = start, start
		}
		s.Dt = dt
		return nil
	}
}

// Env returns the most recent environment sample, or nil if no step has
// been taken yet.
func (s *Simulation) Env() *Environment { return s.env }
