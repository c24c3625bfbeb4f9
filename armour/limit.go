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

// Limit returns input bounded to [lo, hi], swapped bounds are reordered.
// A result outside the bounds after clamping invokes the attack handler and
// lo is returned.
//
//go:noinline
func Limit[T Word](input, lo, hi T) (out T) {
	if lo > hi {
		lo, hi = hi, lo
	}

	out = input

	if out < lo {
		out = lo
	}

	if out > hi {
		out = hi
	}

	delay()

	if out < lo || out > hi {
		Panic()
		return lo
	}

	return
}
