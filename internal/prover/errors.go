// Package prover wires gnark's Groth16 backend into the fixed-shape
// transaction circuit this engine proves against, selecting circuit variants
// by (inputs, outputs) dimension and caching compiled artifacts in-process by
// variant, generalizing an earlier single-purpose per-circuit cache into a
// variant-keyed one.
package prover

import "errors"

// ErrNoDominatingVariant is returned by SelectPPOIVariant when no known
// variant's dimensions dominate the requested (inputs, outputs) shape.
var ErrNoDominatingVariant = errors.New("prover: no circuit variant dominates the requested shape")

// ErrTooManyOutputs mirrors BuilderError::TooManyOutputs at the proving
// boundary, in case a caller invokes Prove directly without going through
// internal/builder's own check.
var ErrTooManyOutputs = errors.New("prover: more than 5 outputs requested")
