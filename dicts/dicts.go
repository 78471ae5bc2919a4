/*
 * dicts.go, part of htase.
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

//Package dicts implements the recursive configuration merge used to
//combine calculator defaults, named presets and caller overrides. The
//merge is right-biased (later arguments win), recurses through nested
//maps only -- slices are replaced wholesale, never merged element-wise
//-- and honors a removal sentinel that deletes a key from the result
//no matter where it appeared.
package dicts

import (
	"bytes"
	"encoding/gob"
	"sort"
)

//Map is the configuration mapping type handled by this package.
type Map = map[string]interface{}

//removeSentinel is unexported so no value but Remove compares equal to
//it.
type removeSentinel struct{}

//Remove is the sentinel value: assign it to a key in a higher-priority
//map to delete that key from the merged result instead of overwriting
//it.
var Remove interface{} = removeSentinel{}

//Merge recursively merges any number of maps, the later ones taking
//precedence. Keys carrying the Remove sentinel are absent from the
//final result. None of the inputs is mutated; nil inputs are treated
//as empty. Merge with a single argument returns a copy of it.
func Merge(maps ...Map) Map {
	merged := Map{}
	for _, m := range maps {
		merged = pairMerge(merged, m)
	}
	return removeEntries(merged)
}

//pairMerge merges two maps without interpreting the Remove sentinel.
//The result shares nothing with either input that a deep copy could
//separate.
func pairMerge(dict1, dict2 Map) Map {
	merged := safeCopy(dict1)
	if merged == nil {
		merged = Map{}
	}
	for key, value := range dict2 {
		sub1, ok1 := merged[key].(Map)
		sub2, ok2 := value.(Map)
		if ok1 && ok2 {
			merged[key] = pairMerge(sub1, sub2)
		} else {
			merged[key] = safeCopyValue(value)
		}
	}
	return merged
}

//removeEntries strips every key whose value is the Remove sentinel,
//recursing through nested maps and slices.
func removeEntries(m Map) Map {
	out := make(Map, len(m))
	for k, v := range m {
		if v == Remove {
			continue
		}
		out[k] = removeValue(v)
	}
	return out
}

func removeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Map:
		return removeEntries(t)
	case []interface{}:
		out := make([]interface{}, 0, len(t))
		for _, e := range t {
			if e == Remove {
				continue
			}
			out = append(out, removeValue(e))
		}
		return out
	default:
		return v
	}
}

//safeCopy deep-copies a map, falling back to a shallow per-key copy
//for values that cannot be deep-copied (unregistered or unexported
//types, live handles). The fallback mirrors the original's behavior:
//better to share a handle than to fail a merge over it.
func safeCopy(m Map) Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = safeCopyValue(v)
	}
	return out
}

func safeCopyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Map:
		return safeCopy(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = safeCopyValue(e)
		}
		return out
	case []string:
		return append([]string{}, t...)
	case []float64:
		return append([]float64{}, t...)
	case []int:
		return append([]int{}, t...)
	default:
		if c, ok := gobCopy(v); ok {
			return c
		}
		return v
	}
}

//gobCopy attempts a deep copy through gob. It only works for types gob
//can round-trip to the same dynamic type, so it is used as a best
//effort with the shallow copy as the fallback.
func gobCopy(v interface{}) (interface{}, bool) {
	switch v.(type) {
	case string, bool, int, int64, float64, float32, nil:
		return v, true //immutable, assignment is already a copy
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&v); err != nil {
		return nil, false
	}
	var out interface{}
	if err := gob.NewDecoder(&buf).Decode(&out); err != nil {
		return nil, false
	}
	return out, true
}

//Float reads a numeric entry, accepting an int where a float was
//expected. Missing or mistyped keys yield the zero value: the merge
//defaults are expected to have put a sane value there already.
func Float(m Map, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

//Int reads an integer entry, truncating a float if that is what the
//caller stored.
func Int(m Map, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

//Bool reads a boolean entry; anything else reads as false.
func Bool(m Map, key string) bool {
	b, _ := m[key].(bool)
	return b
}

//String reads a string entry; anything else reads as "".
func String(m Map, key string) string {
	s, _ := m[key].(string)
	return s
}

//Sorted returns the keys of m in sorted order. Handy for deterministic
//iteration when writing input files and logs.
func Sorted(m Map) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

//CleanTaskDoc returns a copy of m with every nil-valued entry removed,
//recursing through nested maps. Result documents use it so absent
//properties do not show up as nulls.
func CleanTaskDoc(m Map) Map {
	out := make(Map, len(m))
	for k, v := range m {
		if v == nil {
			continue
		}
		if sub, ok := v.(Map); ok {
			out[k] = CleanTaskDoc(sub)
		} else {
			out[k] = v
		}
	}
	return out
}
