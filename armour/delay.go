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
	"math/rand/v2"
	"runtime"
)

// MaxDelay is the upper bound, in loop iterations, of the randomized delay
// applied by Return and by the comparison primitives.
const MaxDelay = 256

// delay busy-waits for a random number of iterations, the number is drawn from
// the runtime generator which is seeded from the platform entropy source and
// does not allocate.
//
//go:noinline
func delay() {
	var acc uint32

	n := rand.Uint32N(MaxDelay)

	for i := uint32(0); i < n; i++ {
		acc = acc*0x9e3779b9 + i
	}

	runtime.KeepAlive(acc)
}
