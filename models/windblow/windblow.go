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

// Package windblow moves passive tracers with the local wind velocity.
package windblow

import "github.com/spatialmodel/drift"

// MaxSpeed is the default speed limit [m/s] for wind-driven tracers.
const MaxSpeed = 12.0

// WindBlow advects passive tracers at exactly the sampled wind velocity.
// It has no state of its own.
type WindBlow struct{}

// ElementType returns drift.PassiveTracer.
func (WindBlow) ElementType() drift.ElementType { return drift.PassiveTracer{} }

// RequiredVariables returns the eastward and northward wind components,
// both zero where no wind data is available.
func (WindBlow) RequiredVariables() drift.RequiredVariables {
	return drift.RequiredVariables{
		"x_wind": {Fallback: 0},
		"y_wind": {Fallback: 0},
	}
}

// SetDefaults sets the speed limit to MaxSpeed.
func (WindBlow) SetDefaults(d drift.Defaulter) error {
	return d.SetDefault(drift.MaxSpeedOption, MaxSpeed)
}

// Update moves the tracers by the wind.
func (WindBlow) Update(c drift.StepContext) {
	env := c.Env()
	c.UpdatePositions(env.Get("x_wind"), env.Get("y_wind"))
}
