/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

// Package capability resolves per-model timing constants from static
// tables. Lookups are exact and the first matching row wins.
package capability

import (
	"sort"

	"jinr.ru/greenlab/go-scan/pkg/log"
)

// Duplicate is a table key declared more than once. Only the first
// declaration is reachable.
type Duplicate struct {
	Table string `json:"table"`
	Key   string `json:"key"`
	Index int    `json:"index"`
}

// Resolver is an immutable lookup service over a Catalog
type Resolver struct {
	catalog    Catalog
	models     map[string]int
	sensors    map[string]int
	motors     map[string]int
	sensorRows map[string]int
	motorRows  map[string]int
	duplicates []Duplicate
}

// NewResolver indexes the catalog. Duplicate keys are recorded and logged,
// dangling references are an error.
func NewResolver(c *Catalog) (*Resolver, error) {
	r := &Resolver{
		catalog:    *c,
		models:     map[string]int{},
		sensors:    map[string]int{},
		motors:     map[string]int{},
		sensorRows: map[string]int{},
		motorRows:  map[string]int{},
	}
	for i, m := range c.Models {
		r.index("model", m.Name, i, r.models)
	}
	for i, s := range c.Sensors {
		r.index("sensor", s.ID, i, r.sensors)
	}
	for i, m := range c.Motors {
		r.index("motor", m.ID, i, r.motors)
	}
	for i, row := range c.SensorRows {
		r.index("sensor_row", rowKey(row.Sensor, row.DPI, row.Color), i, r.sensorRows)
	}
	for i, row := range c.MotorRows {
		r.index("motor_row", rowKey(row.Motor, row.DPI, row.Color), i, r.motorRows)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Resolver) index(table, key string, i int, into map[string]int) {
	if _, ok := into[key]; ok {
		log.Warning("Capability %s %s declared again at index %d, first declaration wins", table, key, i)
		r.duplicates = append(r.duplicates, Duplicate{Table: table, Key: key, Index: i})
		return
	}
	into[key] = i
}

func (r *Resolver) validate() error {
	for _, m := range r.catalog.Models {
		if _, ok := r.sensors[m.Sensor]; !ok {
			return ErrBadCatalog{What: "model " + m.Name + " references unknown sensor " + m.Sensor}
		}
		if _, ok := r.motors[m.Motor]; !ok {
			return ErrBadCatalog{What: "model " + m.Name + " references unknown motor " + m.Motor}
		}
		if m.Family == "" {
			return ErrBadCatalog{What: "model " + m.Name + " has no family"}
		}
	}
	for _, s := range r.catalog.Sensors {
		if s.OpticalDPI <= 0 || s.Pixels <= 0 {
			return ErrBadCatalog{What: "sensor " + s.ID + " has no optical resolution or width"}
		}
		if s.Type != SensorCCD && s.Type != SensorCIS {
			return ErrBadCatalog{What: "sensor " + s.ID + " has unknown type " + string(s.Type)}
		}
	}
	for _, m := range r.catalog.Motors {
		if m.BaseDPI <= 0 {
			return ErrBadCatalog{What: "motor " + m.ID + " has no base resolution"}
		}
	}
	return nil
}

// Duplicates lists the shadowed declarations found at load time
func (r *Resolver) Duplicates() []Duplicate {
	out := make([]Duplicate, len(r.duplicates))
	copy(out, r.duplicates)
	return out
}

func (r *Resolver) Model(name string) (Model, error) {
	i, ok := r.models[name]
	if !ok {
		return Model{}, ErrNoCapabilityMatch{Model: name, Table: "model"}
	}
	return r.catalog.Models[i], nil
}

// Models returns the model names in declaration order
func (r *Resolver) Models() []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range r.catalog.Models {
		if !seen[m.Name] {
			out = append(out, m.Name)
			seen[m.Name] = true
		}
	}
	return out
}

// SensorOf returns the sensor description of a model
func (r *Resolver) SensorOf(model string) (Sensor, error) {
	m, err := r.Model(model)
	if err != nil {
		return Sensor{}, err
	}
	return r.catalog.Sensors[r.sensors[m.Sensor]], nil
}

// MotorOf returns the motor description of a model
func (r *Resolver) MotorOf(model string) (Motor, error) {
	m, err := r.Model(model)
	if err != nil {
		return Motor{}, err
	}
	return r.catalog.Motors[r.motors[m.Motor]], nil
}

// SensorRow resolves (model, sensor, dpi, color). The sensor must be the
// one the model is built with.
func (r *Resolver) SensorRow(model, sensor string, dpi int, color bool) (SensorRow, error) {
	miss := ErrNoCapabilityMatch{Model: model, Table: "sensor", ID: sensor, DPI: dpi, Color: color}
	m, err := r.Model(model)
	if err != nil {
		return SensorRow{}, err
	}
	if m.Sensor != sensor {
		return SensorRow{}, miss
	}
	i, ok := r.sensorRows[rowKey(sensor, dpi, color)]
	if !ok {
		return SensorRow{}, miss
	}
	return r.catalog.SensorRows[i], nil
}

// MotorRow resolves (model, motor, dpi, color)
func (r *Resolver) MotorRow(model, motor string, dpi int, color bool) (MotorRow, error) {
	miss := ErrNoCapabilityMatch{Model: model, Table: "motor", ID: motor, DPI: dpi, Color: color}
	m, err := r.Model(model)
	if err != nil {
		return MotorRow{}, err
	}
	if m.Motor != motor {
		return MotorRow{}, miss
	}
	i, ok := r.motorRows[rowKey(motor, dpi, color)]
	if !ok {
		return MotorRow{}, miss
	}
	return r.catalog.MotorRows[i], nil
}

// Resolutions lists the resolutions a model supports in the given mode,
// that is the ones with both a sensor and a motor row
func (r *Resolver) Resolutions(model string, color bool) []int {
	m, err := r.Model(model)
	if err != nil {
		return nil
	}
	var out []int
	for _, i := range r.sensorRows {
		row := r.catalog.SensorRows[i]
		if row.Sensor != m.Sensor || row.Color != color {
			continue
		}
		if _, ok := r.motorRows[rowKey(m.Motor, row.DPI, color)]; ok {
			out = append(out, row.DPI)
		}
	}
	sort.Ints(out)
	return out
}
