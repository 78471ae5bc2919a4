/*
 * errors.go, part of htase.
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

package htase

import "fmt"

//Error is the interface for errors produced by this package. The
//Decorate method adds information (normally, the name of the function
//passing the error up, plus anything relevant) without changing the
//error's type. If passed an empty string it just returns the current
//decoration slice.
type Error interface {
	Error() string
	Decorate(string) []string
}

//CError is the concrete Error used by this package.
type CError struct {
	msg  string
	deco []string
}

func (err CError) Error() string { return err.msg }

//Decorate adds dec to the decoration slice and returns the resulting
//slice.
func (err CError) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

//NewError produces a CError with the given message, formatted as
//fmt.Sprintf would.
func NewError(format string, a ...interface{}) CError {
	return CError{msg: fmt.Sprintf(format, a...)}
}

//errDecorate asserts that err implements Error, decorates it with the
//caller's name and returns it. Calling it on a plain error wraps the
//error in a CError first.
func errDecorate(err error, caller string) error {
	err2, ok := err.(Error)
	if !ok {
		err2 = CError{msg: err.Error()}
	}
	err2.Decorate(caller)
	return err2
}

//PanicMsg is a message used for panics. It satisfies the error
//interface, but for recoverable conditions use Error instead.
type PanicMsg string

func (v PanicMsg) Error() string { return string(v) }

const (
	ErrNilAtoms        = PanicMsg("htase: nil Atoms")
	ErrNotNx3          = PanicMsg("htase: coordinate matrix must have 3 columns and one row per atom")
	ErrNot3x3          = PanicMsg("htase: cell matrix must be 3x3")
	ErrIndexOutOfRange = PanicMsg("htase: atom index out of range")
)
