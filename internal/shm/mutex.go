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
	"errors"
	"sync/atomic"
	"time"
)

// Mutex state encoding. The classic three-state futex mutex: transitions
// 0->1 on an uncontended acquire, anything->2 once a waiter has to park.
const (
	mutexUnlocked  = 0
	mutexLocked    = 1
	mutexContended = 2
)

// Mutex is an interprocess mutex over a single 32-bit word in shared memory.
// Every process operating on the same word observes the same lock.
//
// The zero word is the unlocked state, so freshly created shared memory needs
// no explicit initialization.
type Mutex struct {
	word *uint32
}

// NewMutex wraps a word that lives in a shared mapping.
func NewMutex(word *uint32) *Mutex {
	return &Mutex{word: word}
}

// Lock acquires the mutex, blocking without bound.
func (m *Mutex) Lock() error {
	if atomic.CompareAndSwapUint32(m.word, mutexUnlocked, mutexLocked) {
		return nil
	}
	for {
		if atomic.SwapUint32(m.word, mutexContended) == mutexUnlocked {
			return nil
		}
		if err := futexWait(m.word, mutexContended); err != nil {
			return err
		}
	}
}

// TryLockFor attempts to acquire the mutex within d. It returns true on
// success and false if the deadline expired with the mutex still held.
func (m *Mutex) TryLockFor(d time.Duration) (bool, error) {
	if atomic.CompareAndSwapUint32(m.word, mutexUnlocked, mutexLocked) {
		return true, nil
	}
	deadline := time.Now().Add(d)
	for {
		if atomic.SwapUint32(m.word, mutexContended) == mutexUnlocked {
			return true, nil
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}
		err := futexWaitTimeout(m.word, mutexContended, remaining.Nanoseconds())
		if errors.Is(err, ErrFutexTimeout) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
}

// Unlock releases the mutex and wakes one parked waiter, if any.
func (m *Mutex) Unlock() error {
	if atomic.SwapUint32(m.word, mutexUnlocked) == mutexContended {
		if _, err := futexWake(m.word, 1); err != nil {
			return err
		}
	}
	return nil
}
