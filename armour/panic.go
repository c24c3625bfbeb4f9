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
	"log"
	"sync/atomic"
)

var handler atomic.Pointer[func()]

func defaultHandler() {
	log.Fatal("armour: fault injection detected, halting")
}

// SetPanicHandler overrides the process-wide attack handler and returns the
// previous one. A nil fn restores the default handler, which logs and halts
// execution through log.Fatal.
//
// Production handlers must not be a no-op (e.g. reset, halt or wipe
// secrets).
func SetPanicHandler(fn func()) (previous func()) {
	if fn == nil {
		fn = defaultHandler
	}

	if p := handler.Swap(&fn); p != nil {
		return *p
	}

	return defaultHandler
}

// Panic invokes the attack handler. Callers must assume it does not return
// and, when it does, must not use any data it was meant to protect.
func Panic() {
	if fn := handler.Load(); fn != nil {
		(*fn)()
		return
	}

	defaultHandler()
}

// TestPanic invokes the attack handler, it is meant to validate the response
// to a detected attack during board bring-up.
func TestPanic() {
	Panic()
}
