package v8

import (
	_ "embed"
)

// bootstrapScript the engine-bridge script loaded into every runtime context
// before the platform scripts
//
//go:embed scripts/bootstrap.js
var bootstrapScript string
