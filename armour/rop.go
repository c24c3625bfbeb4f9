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

import (
	"runtime"
)

// Unpopulated is the placeholder for ReturnTable entries not yet written by
// the post-link step. Declaring tables filled with it places them in an
// initialized data section, where the post-link step can patch them, and it
// never matches a real return address.
const Unpopulated = ^uintptr(0)

// ReturnTable lists the valid return addresses of a guarded function. It is
// meant to reference a fixed size array declared by the guarded package:
//
//	var unlockSites = [4]uintptr{armour.Unpopulated, armour.Unpopulated, ...}
//
// whose entries are written by a post-link step (see cmd/armourpatch), a zero
// entry marks the end of the valid entries.
type ReturnTable []uintptr

// returnAddress returns the return address of the function skip frames up
// the stack from its caller.
//
//go:noinline
func returnAddress(skip int) uintptr {
	var pc [1]uintptr

	if runtime.Callers(skip, pc[:]) != 1 {
		return 0
	}

	return pc[0]
}

// Check validates that the function calling it is returning to a location
// listed in t, invoking the attack handler otherwise.
//
// The guarded function must not be inlined (//go:noinline) so that it has
// its own return address.
//
//go:noinline
func (t ReturnTable) Check() Result {
	// 0: runtime.Callers, 1: returnAddress, 2: Check, 3: guarded function,
	// 4: its caller
	return t.Validate(returnAddress(4))
}

// Validate scans t for ra within its fixed capacity. Reaching a zero entry,
// or the end of the table, before a match invokes the attack handler and
// returns MemErr.
func (t ReturnTable) Validate(ra uintptr) Result {
	var i int

	if ra == 0 {
		Panic()
		return MemErr
	}

	for i = 0; i < len(t); i++ {
		if t[i] == 0 {
			// end marker reached without a match
			Panic()
			return MemErr
		}

		if t[i] == ra {
			break
		}
	}

	if i >= len(t) {
		Panic()
		return MemErr
	}

	delay()

	if t[i] != ra {
		Panic()
		return MemErr
	}

	return Success
}
