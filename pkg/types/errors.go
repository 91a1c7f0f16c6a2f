// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package types

import "errors"

// Errors raised while loading interchange files or walking the symbol
// graph. All of them abort the run.
var (
	ErrMissingRequiredFile  = errors.New("missing required interchange file")
	ErrMalformedInterchange = errors.New("malformed interchange")
	ErrUnsupportedKind      = errors.New("unsupported symbol kind")
	ErrUnresolvedReExport   = errors.New("unresolved re-export")
	ErrMissingField         = errors.New("struct field not found")
	ErrUnknownUnit          = errors.New("unknown compilation unit")
)
