/*
 *
 * Copyright 2025 the osrm-backend authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package storage

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
)

// StorageConfig names every artifact of one processed dataset. Required
// artifacts must exist on disk before loading starts; the four hierarchy
// artifacts are optional and load as empty blocks when absent.
type StorageConfig struct {
	Names                 string `validate:"required,file"`
	FileIndex             string `validate:"required,file"`
	RAMIndex              string `validate:"required,file"`
	Edges                 string `validate:"required,file"`
	EBGNodes              string `validate:"required,file"`
	Geometry              string `validate:"required,file"`
	Properties            string `validate:"required,file"`
	Timestamp             string `validate:"required,file"`
	NBGNodes              string `validate:"required,file"`
	TurnLaneDescriptions  string `validate:"required,file"`
	TurnLaneData          string `validate:"required,file"`
	IntersectionClassData string `validate:"required,file"`
	TurnWeightPenalties   string `validate:"required,file"`
	TurnDurationPenalties string `validate:"required,file"`
	DatasourceNames       string `validate:"required,file"`
	ManeuverOverrides     string `validate:"required,file"`

	HSGR        string `validate:"omitempty,file"`
	Partition   string `validate:"omitempty,file"`
	Cells       string `validate:"omitempty,file"`
	CellMetrics string `validate:"omitempty,file"`
	MLDGraph    string `validate:"omitempty,file"`
}

// NewStorageConfig derives the artifact paths from the dataset base path,
// e.g. "berlin.osrm". Optional artifacts that do not exist on disk are left
// empty so validation and loading treat them as absent.
func NewStorageConfig(base string) *StorageConfig {
	c := &StorageConfig{
		Names:                 base + ".names",
		FileIndex:             base + ".fileIndex",
		RAMIndex:              base + ".ramIndex",
		Edges:                 base + ".edges",
		EBGNodes:              base + ".ebg_nodes",
		Geometry:              base + ".geometry",
		Properties:            base + ".properties",
		Timestamp:             base + ".timestamp",
		NBGNodes:              base + ".nbg_nodes",
		TurnLaneDescriptions:  base + ".tls",
		TurnLaneData:          base + ".tld",
		IntersectionClassData: base + ".icd",
		TurnWeightPenalties:   base + ".turn_weight_penalties",
		TurnDurationPenalties: base + ".turn_duration_penalties",
		DatasourceNames:       base + ".datasource_names",
		ManeuverOverrides:     base + ".maneuver_overrides",
	}
	for _, opt := range []struct {
		path  string
		field *string
	}{
		{base + ".hsgr", &c.HSGR},
		{base + ".partition", &c.Partition},
		{base + ".cells", &c.Cells},
		{base + ".cell_metrics", &c.CellMetrics},
		{base + ".mldgr", &c.MLDGraph},
	} {
		if _, err := os.Stat(opt.path); err == nil {
			*opt.field = opt.path
		}
	}
	return c
}

// HasCH reports whether the contracted hierarchy artifact is present.
func (c *StorageConfig) HasCH() bool { return c.HSGR != "" }

// HasMLD reports whether the full multi-level partition artifact set is
// present.
func (c *StorageConfig) HasMLD() bool {
	return c.Partition != "" && c.Cells != "" && c.CellMetrics != "" && c.MLDGraph != ""
}

var validate = validator.New()

// Validate checks that every required artifact exists and every declared
// optional artifact is a real file.
func (c *StorageConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: missing artifact for %s: %s",
				ErrConfigInvalid, verrs[0].StructField(), verrs[0].Value())
		}
		return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	return nil
}
