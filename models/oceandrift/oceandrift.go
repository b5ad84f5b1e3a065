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

// Package oceandrift moves surface drifters with the ocean current plus a
// fraction of the wind.
package oceandrift

import "github.com/spatialmodel/drift"

// MaxSpeed is the default speed limit [m/s] for surface drifters.
const MaxSpeed = 5.0

// OceanDrift advects drifters at the sea water velocity plus
// wind_drift_factor times the wind velocity.
type OceanDrift struct{}

// ElementType returns drift.Drifter.
func (OceanDrift) ElementType() drift.ElementType { return drift.Drifter{} }

// RequiredVariables returns the current and wind components, all zero
// where no data is available.
func (OceanDrift) RequiredVariables() drift.RequiredVariables {
	return drift.RequiredVariables{
		"x_sea_water_velocity": {Fallback: 0},
		"y_sea_water_velocity": {Fallback: 0},
		"x_wind":               {Fallback: 0},
		"y_wind":               {Fallback: 0},
	}
}

// SetDefaults sets the speed limit to MaxSpeed.
func (OceanDrift) SetDefaults(d drift.Defaulter) error {
	return d.SetDefault(drift.MaxSpeedOption, MaxSpeed)
}

// Update moves the drifters.
func (OceanDrift) Update(c drift.StepContext) {
	env := c.Env()
	cu, cv := env.Get("x_sea_water_velocity"), env.Get("y_sea_water_velocity")
	wu, wv := env.Get("x_wind"), env.Get("y_wind")
	f := c.Property("wind_drift_factor")

	u := make([]float64, env.Len())
	v := make([]float64, env.Len())
	for i := range u {
		u[i] = cu[i] + f[i]*wu[i]
		v[i] = cv[i] + f[i]*wv[i]
	}
	c.UpdatePositions(u, v)
}
