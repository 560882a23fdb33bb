// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command commpump bridges stdin and stdout to a TCP peer or a serial line.
package main

func main() {
	Execute()
}
