// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package ipcbus_test

// raceEnabled is true when the race detector is active.
// Stress tests that spawn many goroutines scale down their iteration
// counts in race mode to keep runtime reasonable.
const raceEnabled = true
