/*
 * presets.go, part of htase.
 *
 * Copyright 2023 The htase Authors
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/arosen93/htase/dicts"
	"gopkg.in/yaml.v3"
)

//LoadPreset reads a YAML calculator preset. A preset may name another
//preset under the "parent" key (a path relative to its own directory,
//".yaml" implied); the parent chain is resolved bottom-up with the
//child winning on conflicts, and the "parent" key itself does not
//appear in the result.
func LoadPreset(path string) (dicts.Map, error) {
	return loadPreset(path, nil)
}

func loadPreset(path string, seen []string) (dicts.Map, error) {
	if filepath.Ext(path) == "" {
		path += ".yaml"
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	for _, s := range seen {
		if s == abs {
			return nil, fmt.Errorf("settings: preset inheritance cycle through %s", abs)
		}
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	var preset dicts.Map
	if err := yaml.Unmarshal(data, &preset); err != nil {
		return nil, fmt.Errorf("settings: parsing preset %s: %w", abs, err)
	}
	parent, _ := preset["parent"].(string)
	delete(preset, "parent")
	if parent == "" {
		return preset, nil
	}
	if !filepath.IsAbs(parent) {
		parent = filepath.Join(filepath.Dir(abs), parent)
	}
	base, err := loadPreset(parent, append(seen, abs))
	if err != nil {
		return nil, err
	}
	return dicts.Merge(base, preset), nil
}

//ResolveParams merges a job's defaults, the preset named by the
//"preset" override (if any) and the remaining overrides, in that
//order of precedence.
func ResolveParams(defaults, overrides dicts.Map) (dicts.Map, error) {
	name, _ := overrides["preset"].(string)
	if name == "" {
		return dicts.Merge(defaults, overrides), nil
	}
	preset, err := LoadPreset(name)
	if err != nil {
		return nil, err
	}
	rest := make(dicts.Map, len(overrides))
	for k, v := range overrides {
		if k != "preset" {
			rest[k] = v
		}
	}
	return dicts.Merge(defaults, preset, rest), nil
}

//ListPresets returns the preset names (file base names without the
//extension) available in a directory, sorted.
func ListPresets(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml") {
			names = append(names, strings.TrimSuffix(strings.TrimSuffix(name, ".yaml"), ".yml"))
		}
	}
	return names, nil
}
