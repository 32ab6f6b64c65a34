/*
 *
 * Copyright 2025 the osrm-backend authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 */

package shm

import (
	"math"
	"sync/atomic"
)

// Cond is an interprocess condition variable over a 32-bit sequence word in
// shared memory. Broadcast bumps the sequence and wakes every parked waiter;
// waiters park on the sequence value they snapshotted under the paired mutex.
//
// There is no Signal: the publish handshake only ever wakes all readers.
type Cond struct {
	seq *uint32
}

// NewCond wraps a sequence word that lives in a shared mapping.
func NewCond(seq *uint32) *Cond {
	return &Cond{seq: seq}
}

// Wait atomically releases mu and parks until a Broadcast arrives, then
// reacquires mu before returning. Spurious wakeups are possible; callers
// must re-check their condition in a loop.
func (c *Cond) Wait(mu *Mutex) error {
	seq := atomic.LoadUint32(c.seq)
	if err := mu.Unlock(); err != nil {
		return err
	}
	waitErr := futexWait(c.seq, seq)
	if err := mu.Lock(); err != nil {
		return err
	}
	return waitErr
}

// Broadcast wakes every waiter currently parked on the condition.
func (c *Cond) Broadcast() error {
	atomic.AddUint32(c.seq, 1)
	_, err := futexWake(c.seq, math.MaxInt32)
	return err
}
