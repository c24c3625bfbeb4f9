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

// Package armour implements countermeasures against fault injection (voltage
// and clock glitching, laser, EM pulses) and return-oriented programming on
// firmware built with TamaGo or running hosted.
//
// The package provides:
//   - redundant value wrapping (Value) produced after a randomized delay,
//   - fault-resistant comparison dispatching one of two Actions,
//   - digest comparison against an expected value through a Producer,
//   - return address validation against a post-link populated ReturnTable,
//   - a memory region which is locked by default and can only be unlocked
//     with a key from whitelisted call sites.
//
// Every detected inconsistency invokes the process-wide attack handler (see
// SetPanicHandler). Callers must treat it as non-returning.
//
// Security decisions are never reported through Go errors: they are Result
// codes chosen so that no small number of bit flips turns one into another.
package armour
