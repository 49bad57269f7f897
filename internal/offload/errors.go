// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package offload

import "errors"

var (
	// ErrConnectionNotFound is returned by Remove for a pairing that was
	// never Upserted (or was already removed).
	ErrConnectionNotFound = errors.New("offload: connection not found")
)
