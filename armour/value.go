// Copyright 2024 The Armored FI authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package armour

// Word is the set of unsigned integer types that can be armoured.
type Word interface {
	~uint8 | ~uint16 | ~uint32
}

// Value holds a redundant representation of a security relevant value. It
// can only be created with Return (or Ret8, Ret16, Ret32) and consumed by
// CompareEqual; its zero value is invalid.
type Value[T Word] struct {
	v T
	s T
}

// U32 is an armoured uint32.
type U32 = Value[uint32]

// U16 is an armoured uint16.
type U16 = Value[uint16]

// U8 is an armoured uint8.
type U8 = Value[uint8]

// Return wraps value in its redundant representation after a random delay,
// preventing an attacker from timing a glitch on the return path.
//
// The shadow is derived from the argument before the delay while the value
// is stored after it, so that skipping a single instruction cannot corrupt
// both consistently.
//
//go:noinline
func Return[T Word](value T) (r Value[T]) {
	r.s = ^value
	delay()
	r.v = value

	return
}

// Ret32 returns an armoured uint32 after a random delay.
func Ret32(value uint32) U32 {
	return Return(value)
}

// Ret16 returns an armoured uint16 after a random delay.
func Ret16(value uint16) U16 {
	return Return(value)
}

// Ret8 returns an armoured uint8 after a random delay.
func Ret8(value uint8) U8 {
	return Return(value)
}

// consistent reports whether the value/shadow relationship holds.
func (r Value[T]) consistent() bool {
	return r.v^r.s == ^T(0)
}
