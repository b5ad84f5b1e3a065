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
	"sort"

	"github.com/spf13/cast"
)

// Names of the configuration options.
const (
	MaxSpeedOption              = "drift:max_speed"
	HorizontalDiffusivityOption = "drift:horizontal_diffusivity"
	SeedOption                  = "general:seed"
)

// Config holds the engine configuration.
type Config struct {
	// MaxSpeed is the upper bound on element speed [m/s] applied by the
	// position update.
	MaxSpeed float64 `toml:"drift:max_speed" yaml:"drift:max_speed"`

	// HorizontalDiffusivity [m²/s] controls the random walk applied after
	// each model update. Zero disables it.
	HorizontalDiffusivity float64 `toml:"drift:horizontal_diffusivity" yaml:"drift:horizontal_diffusivity"`

	// Seed seeds the random number generator used for seeding and diffusion.
	Seed int64 `toml:"general:seed" yaml:"general:seed"`
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{MaxSpeed: 1}
}

type configOption struct {
	set func(c *Config, v interface{}) error
	get func(c *Config) interface{}
}

var configOptions = map[string]configOption{
	MaxSpeedOption: {
		set: func(c *Config, v interface{}) (err error) {
			c.MaxSpeed, err = cast.ToFloat64E(v)
			return
		},
		get: func(c *Config) interface{} { return c.MaxSpeed },
	},
	HorizontalDiffusivityOption: {
		set: func(c *Config, v interface{}) (err error) {
			c.HorizontalDiffusivity, err = cast.ToFloat64E(v)
			return
		},
		get: func(c *Config) interface{} { return c.HorizontalDiffusivity },
	},
	SeedOption: {
		set: func(c *Config, v interface{}) (err error) {
			c.Seed, err = cast.ToInt64E(v)
			return
		},
		get: func(c *Config) interface{} { return c.Seed },
	},
}

// ConfigOptions returns the names of the recognized configuration options.
func ConfigOptions() []string {
	o := make([]string, 0, len(configOptions))
	for k := range configOptions {
		o = append(o, k)
	}
	sort.Strings(o)
	return o
}

// Set sets the named option.
func (c *Config) Set(name string, value interface{}) error {
	opt, ok := configOptions[name]
	if !ok {
		return fmt.Errorf("drift: unknown configuration option %q", name)
	}
	if err := opt.set(c, value); err != nil {
		return fmt.Errorf("drift: configuration option %q: %v", name, err)
	}
	return nil
}

// SetDefault sets the named option. Models call it from SetDefaults, before
// any user setting is applied.
func (c *Config) SetDefault(name string, value interface{}) error {
	return c.Set(name, value)
}

// Get returns the value of the named option.
func (c *Config) Get(name string) (interface{}, error) {
	opt, ok := configOptions[name]
	if !ok {
		return nil, fmt.Errorf("drift: unknown configuration option %q", name)
	}
	return opt.get(c), nil
}

// SetAll sets every option in options, in sorted name order.
func (c *Config) SetAll(options map[string]interface{}) error {
	names := make([]string, 0, len(options))
	for k := range options {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, n := range names {
		if err := c.Set(n, options[n]); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks that the option values are usable.
func (c *Config) Validate() error {
	if !(c.MaxSpeed > 0) {
		return fmt.Errorf("drift: %s=%g but should be >0", MaxSpeedOption, c.MaxSpeed)
	}
	if !(c.HorizontalDiffusivity >= 0) {
		return fmt.Errorf("drift: %s=%g but should be >=0", HorizontalDiffusivityOption, c.HorizontalDiffusivity)
	}
	return nil
}
