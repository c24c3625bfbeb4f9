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


// Command table is an image carrying an unpopulated return table, patched by
// the armourpatch tests.
package main

import "fmt"

var sites = [4]uintptr{^uintptr(0), ^uintptr(0), ^uintptr(0), ^uintptr(0)}

func main() {
	fmt.Println(sites)
}
