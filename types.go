// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ipcbus

// noCopy is a sentinel used to prevent copying of types that are always
// held by pointer and own a live reference into shared memory (Segment,
// Publisher, Subscriber). go vet's copylocks check flags any accidental
// pass-by-value of a type embedding it, so it is never embedded in a type
// that is deliberately passed by value (LoanedSample, ReceivedSample).
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
