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
	"fmt"
	"math/bits"
)

// Result represents the outcome of an armoured operation.
//
// Values are sparse 32-bit patterns, any pair differs in at least 13 bits and
// the most significant bit is always clear.
type Result uint32

const (
	// Success is returned when operands match or an operation completed.
	Success Result = 0x5abf0938
	// Fail is returned when operands differ, it is not an error.
	Fail Result = 0x2820f02a
	// BadArg is returned on malformed caller input.
	BadArg Result = 0x328a9201
	// MemErr is returned on internal inconsistency, the attack handler has
	// already been invoked when it is returned.
	MemErr Result = 0x480abfe1
)

// Results lists all valid Result codes.
var Results = [...]Result{Success, Fail, BadArg, MemErr}

// Valid returns whether r is one of the defined Result codes.
func (r Result) Valid() bool {
	switch r {
	case Success, Fail, BadArg, MemErr:
		return true
	}

	return false
}

func (r Result) String() string {
	switch r {
	case Success:
		return "SUCCESS"
	case Fail:
		return "FAIL"
	case BadArg:
		return "BADARG"
	case MemErr:
		return "MEMERR"
	}

	return fmt.Sprintf("INVALID(0x%08x)", uint32(r))
}

// Distance returns the Hamming distance between two Result codes.
func Distance(a, b Result) int {
	return bits.OnesCount32(uint32(a ^ b))
}

// MinDistance returns the minimum pairwise Hamming distance across all
// defined Result codes.
func MinDistance() (n int) {
	n = 32

	for i := 0; i < len(Results); i++ {
		for j := i + 1; j < len(Results); j++ {
			if d := Distance(Results[i], Results[j]); d < n {
				n = d
			}
		}
	}

	return
}
