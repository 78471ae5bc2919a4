/*
 * dicts_test.go, part of htase.
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

package dicts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeRightBias(t *testing.T) {
	a := Map{"xc": "pbe", "kpts": []int{1, 1, 1}, "scf": Map{"maxiter": 100, "conv": 1e-6}}
	b := Map{"kpts": []int{4, 4, 4}, "scf": Map{"maxiter": 200}}
	got := Merge(a, b)
	assert.Equal(t, "pbe", got["xc"])
	assert.Equal(t, []int{4, 4, 4}, got["kpts"], "sequences must be replaced wholesale")
	scf, ok := got["scf"].(Map)
	require.True(t, ok)
	assert.Equal(t, 200, scf["maxiter"], "later source wins on collision")
	assert.Equal(t, 1e-6, scf["conv"], "non-colliding nested keys survive")
}

func TestMergeIdentity(t *testing.T) {
	a := Map{"a": 1, "nested": Map{"b": "x"}}
	assert.Equal(t, Map{"a": 1, "nested": Map{"b": "x"}}, Merge(a, Map{}))
	assert.Equal(t, Map{"a": 1, "nested": Map{"b": "x"}}, Merge(a))
}

func TestMergeNotCommutative(t *testing.T) {
	a := Map{"k": 1}
	b := Map{"k": 2}
	assert.NotEqual(t, Merge(a, b), Merge(b, a))
}

func TestMergeRemoveSentinel(t *testing.T) {
	a := Map{"keep": 1, "drop": 2, "nested": Map{"alsoDrop": 3, "stay": 4}}
	b := Map{"drop": Remove, "nested": Map{"alsoDrop": Remove}}
	got := Merge(a, b)
	assert.Equal(t, 1, got["keep"])
	_, present := got["drop"]
	assert.False(t, present, "Remove must delete the key, not set it")
	nested := got["nested"].(Map)
	_, present = nested["alsoDrop"]
	assert.False(t, present)
	assert.Equal(t, 4, nested["stay"])

	//A key that only ever existed with the sentinel is absent too.
	got = Merge(Map{}, Map{"ghost": Remove})
	_, present = got["ghost"]
	assert.False(t, present)
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	a := Map{"nested": Map{"x": 1}}
	b := Map{"nested": Map{"y": 2}}
	got := Merge(a, b)
	got["nested"].(Map)["x"] = 99
	assert.Equal(t, 1, a["nested"].(Map)["x"], "mutating the result must not reach input a")
	_, present := a["nested"].(Map)["y"]
	assert.False(t, present, "merge must not write into input a")
	assert.Equal(t, 2, b["nested"].(Map)["y"])
}

func TestMergeNilInputs(t *testing.T) {
	got := Merge(nil, Map{"a": 1}, nil)
	assert.Equal(t, Map{"a": 1}, got)
}

func TestSafeCopyFallsBackOnHandles(t *testing.T) {
	ch := make(chan int) //gob cannot encode a channel
	a := Map{"handle": ch}
	got := Merge(a, Map{})
	assert.Equal(t, ch, got["handle"], "uncopyable values are shared, not dropped")
}

func TestSorted(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, Sorted(Map{"c": 1, "a": 2, "b": 3}))
}

func TestCleanTaskDoc(t *testing.T) {
	in := Map{"a": 1, "b": nil, "nested": Map{"c": nil, "d": 2}}
	got := CleanTaskDoc(in)
	_, present := got["b"]
	assert.False(t, present)
	nested := got["nested"].(Map)
	_, present = nested["c"]
	assert.False(t, present)
	assert.Equal(t, 2, nested["d"])
}
