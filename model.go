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

import "sort"

// A Model is a force update rule: each step it turns the sampled
// environment into the velocities that move the live elements.
type Model interface {
	// ElementType is the kind of element the model moves.
	ElementType() ElementType

	// RequiredVariables lists the environment fields the model reads,
	// with the value to use where no reader has coverage.
	RequiredVariables() RequiredVariables

	// SetDefaults registers the model's configuration defaults. It is
	// called once, when the simulation is created.
	SetDefaults(d Defaulter) error

	// Update advances the live elements by one step. It is called once per
	// step, also when there are no live elements, and must call
	// c.UpdatePositions exactly once.
	Update(c StepContext)
}

// Defaulter registers configuration defaults by option name.
type Defaulter interface {
	SetDefault(name string, value interface{}) error
}

// StepContext is the view of the simulation a Model gets during Update.
type StepContext interface {
	// Env is the environment sampled at the live elements for this step.
	Env() *Environment

	// Property returns the values of the named element property for the
	// live elements, in the same order as the rows of Env. It returns nil
	// if the element type has no such property.
	Property(name string) []float64

	// UpdatePositions moves each live element by its eastward (u) and
	// northward (v) velocity [m/s] over the time step.
	UpdatePositions(u, v []float64)
}

// Variable describes a required environment field.
type Variable struct {
	// Fallback is used where no reader provides the variable.
	Fallback float64
}

// RequiredVariables maps environment variable names to their descriptions.
type RequiredVariables map[string]Variable

// Names returns the variable names in sorted order.
func (r RequiredVariables) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
