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

// Action is a capability invoked by the comparison primitives, a nil Action
// does nothing.
type Action func()

func (a Action) call() {
	if a != nil {
		a()
	}
}

// dispatch invokes exactly one of onEqual and onNotEqual according to two
// independently computed match flags. The equal path is only taken when both
// flags agree, and they are tested again once inside it to catch a skipped
// branch.
func dispatch(first, second uint32, onEqual, onNotEqual Action) Result {
	if first == 0 {
		delay()

		if second == 0 {
			if first|second != 0 {
				Panic()
				return MemErr
			}

			onEqual.call()
			return Success
		}
	}

	if first|second == 0 {
		// not-equal path reached with matching operands
		Panic()
		return MemErr
	}

	onNotEqual.call()
	return Fail
}

// CompareEqual compares two armoured values and invokes onEqual when they
// match or onNotEqual when they differ, exactly one of them runs.
//
// Operands which fail their internal consistency check are treated as
// evidence of tampering: the attack handler is invoked, no Action runs and
// MemErr is returned.
//
// The returned Result allows callers to branch as well, the Actions are the
// enforcement mechanism and do not depend on it being checked.
//
//go:noinline
func CompareEqual[T Word](a, b Value[T], onEqual, onNotEqual Action) Result {
	if !a.consistent() || !b.consistent() {
		Panic()
		return MemErr
	}

	first := uint32(a.v ^ b.v)
	delay()
	second := uint32(a.s ^ b.s)

	if !a.consistent() || !b.consistent() {
		Panic()
		return MemErr
	}

	return dispatch(first, second, onEqual, onNotEqual)
}
