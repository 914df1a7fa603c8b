// genecascade - Cascading Gene Prediction and Taxonomic Consensus
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/genecascade

package models

import "errors"

// ErrInvalidArgument is returned when a caller passes a value outside the
// accepted domain of an operation (unknown artifact kind, negative sample
// size, malformed taxid).
var ErrInvalidArgument = errors.New("invalid argument")
