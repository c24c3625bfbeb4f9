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

// ReturnAddress exposes the return address capture used by Check and Unlock
// with the same frame depth: the result is the return address of the
// function calling ReturnAddress.
//
//go:noinline
func ReturnAddress() uintptr {
	// 0: runtime.Callers, 1: returnAddress, 2: ReturnAddress, 3: caller,
	// 4: its caller
	return returnAddress(4)
}

// Tamper returns a Value whose value/shadow relationship does not hold.
func Tamper[T Word](r Value[T], mask T) Value[T] {
	r.v ^= mask
	return r
}

// ResetDefault clears the process-wide region.
func ResetDefault() {
	secure.Store(nil)
}

// CorruptState overwrites the region state.
func (r *Region) CorruptState(s uint32) {
	r.state.Store(s)
}

var Faults = faults

// UnlockFrom runs Unlock as if returning to ra.
func (r *Region) UnlockFrom(key uint32, ra uintptr) Result {
	return r.unlock(key, ra)
}
