// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus

import (
	"fmt"
	"os"
)

// violate reports an invariant violation and aborts the process. It is
// called only for conditions that indicate a programming error (an out of
// range chunk index, a chunk observed in an impossible state) — conditions
// the core cannot recover from on behalf of the caller.
func violate(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "ipcbus: violation: "+format+"\n", args...)
	panic(fmt.Sprintf(format, args...))
}
