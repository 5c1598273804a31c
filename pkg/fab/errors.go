// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
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

package fab

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned by fill, mix, and step when called before
// the first init_tick on a FABCore.
var ErrNotInitialized = errors.New("fab: init_tick not called before this operation")

// InvalidBudgetError reports a Budgets value that fails init_tick
// validation (§7: non-positive budgets.nodes or missing keys).
type InvalidBudgetError struct {
	Reason string
}

func (e *InvalidBudgetError) Error() string {
	return fmt.Sprintf("fab: invalid budget: %s", e.Reason)
}

// InvalidSliceError reports a ZSlice that fails validate() (§4.6, §7).
type InvalidSliceError struct {
	Reason string
}

func (e *InvalidSliceError) Error() string {
	return fmt.Sprintf("fab: invalid slice: %s", e.Reason)
}

// InternalInvariantViolatedError describes a breach of one of the
// invariants I1-I7 in §3. No FABCore operation checks those invariants
// after the fact, and nothing in this package returns or panics with this
// error.
type InternalInvariantViolatedError struct {
	Which string
}

func (e *InternalInvariantViolatedError) Error() string {
	return fmt.Sprintf("fab: internal invariant violated: %s", e.Which)
}
