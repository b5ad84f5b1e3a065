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

// Package driftutil contains the command-line interface for the drift
// model.
package driftutil

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/drift"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to drift.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Model",
			usage: `
              Model is the force update rule that moves the elements.
              Options are 'windblow' (passive tracers moved by the wind)
              and 'oceandrift' (drifters moved by the current plus
              a fraction of the wind).`,
			shorthand:  "m",
			defaultVal: "windblow",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "ModelConfig",
			usage: `
              ModelConfig sets engine configuration options by name, overriding the
              model defaults. Recognized options are 'drift:max_speed' [m/s],
              'drift:horizontal_diffusivity' [m²/s], and 'general:seed'.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Readers",
			usage: `
              Readers are the paths to NetCDF files holding gridded environment
              data. Readers are queried in the order given, and any location
              not covered by a reader gets the variable's fallback value.
              Can include environment variables.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "ConstantReader",
			usage: `
              ConstantReader gives spatially and temporally constant values of
              environment variables, for example {"x_wind": "5"}. It is queried
              after the Readers.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Seed.Lon",
			usage: `
              Seed.Lon is the longitude of the center of the element release [degrees].`,
			defaultVal: 141.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Seed.Lat",
			usage: `
              Seed.Lat is the latitude of the center of the element release [degrees].`,
			defaultVal: 37.5,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Seed.Radius",
			usage: `
              Seed.Radius is the radius of the element release [m].`,
			defaultVal: 50000.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Seed.Number",
			usage: `
              Seed.Number is the number of elements to release.`,
			defaultVal: 2000,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Seed.Z",
			usage: `
              Seed.Z is the depth of the released elements [m], negative below the
              surface. It is ignored if Seed.ZMin < Seed.ZMax.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Seed.ZMin",
			usage: `
              Seed.ZMin and Seed.ZMax specify a depth range [m] that element depths
              are drawn from uniformly.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Seed.ZMax",
			usage: `
              Seed.ZMax is the upper end of the depth range [m]; see Seed.ZMin.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Seed.Time",
			usage: `
              Seed.Time is the release time and simulation start time in RFC 3339
              format. If it is empty, the earliest start time of the Readers is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Seed.Properties",
			usage: `
              Seed.Properties overrides element property defaults, for example
              {"wind_drift_factor": "0.03"} for the oceandrift model.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "TimeStep",
			usage: `
              TimeStep is the model time step, for example "15m".`,
			defaultVal: "15m",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputTimeStep",
			usage: `
              OutputTimeStep is how often element positions are written to
              OutputFile. It should be a multiple of TimeStep.`,
			defaultVal: "1h",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Duration",
			usage: `
              Duration is the length of the simulation, counted from the original
              start time. It is ignored if Steps > 0.`,
			defaultVal: "24h",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Steps",
			usage: `
              Steps is the total number of time steps to simulate, including
              any steps taken before InitialState was saved. If < 1, the number
              of steps is calculated from Duration.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Domain",
			usage: `
              Domain is the simulation domain as [lonmin, lonmax, latmin, latmax]
              in degrees. Elements leaving it are deactivated. If it is
              empty, elements are never deactivated.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path to the desired trajectory CSV file location. It can
              include environment variables.`,
			shorthand:  "o",
			defaultVal: "drift_output.csv",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "FinalShapefile",
			usage: `
              FinalShapefile is the path to a point shapefile holding the final state
              of the elements. If it is empty, no shapefile is written. It can include
              environment variables.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies the columns of FinalShapefile as expressions
              of the element variables id, lon, lat, z, lon0, lat0, status, and the
              element properties.`,
			defaultVal: map[string]string{
				"Lon":     "lon",
				"Lat":     "lat",
				"Status":  "status",
				"Dist_km": "distance(lon0, lat0, lon, lat)",
			},
			flagsets: []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "ConfigSnapshot",
			usage: `
              ConfigSnapshot is the path where the resolved configuration is saved.
              Files ending in .yaml or .yml are written as YAML, others as TOML.
              If it is empty, it is saved next to OutputFile with a .toml extension.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "StateFile",
			usage: `
              StateFile is the path where the final simulation state is saved so that
              the simulation can be continued later. If it is empty, the state is not saved.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "InitialState",
			usage: `
              InitialState is the path to a previously saved StateFile to continue
              from instead of releasing new elements.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired logfile location. It can include
              environment variables. If LogFile is left blank, the logfile will be saved in
              the same location as the OutputFile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum severity of the messages that are logged
              (debug, info, warning, or error).`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("DRIFT")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			case map[string]string:
				b := bytes.NewBuffer(nil)
				json.NewEncoder(b).Encode(v)
				set.StringP(option.name, option.shorthand, b.String(), option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("drift: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "drift",
	Short: "A Lagrangian particle drift model.",
	Long: `drift simulates the transport of particles, such as passive tracers
or surface drifters, by gridded winds and ocean currents.
Use the subcommands specified below to access the model functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'DRIFT_var' where 'var' is the
name of the variable to be set. Many configuration variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of drift.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("drift v%s\n", drift.Version)
	},
	DisableAutoGenTag: true,
}

// runCmd is a command that runs a drift simulation.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation.",
	Long: `run releases elements, moves them with the chosen model and the
environment data from the readers, and writes their trajectories.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := NewRunConfig(Cfg)
		if err != nil {
			return err
		}
		return Run(cmd, c)
	},
	DisableAutoGenTag: true,
}
