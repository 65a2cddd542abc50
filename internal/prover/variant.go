package prover

import "fmt"

// MaxOutputs is the hard cap on a single transaction's total outputs
// (Transact notes plus an optional Unshield).
const MaxOutputs = 5

// VariantKey formats the circuit variant name for a given (inputs, outputs)
// shape: "{nInputs:02}x{nOutputs:02}".
func VariantKey(nInputs, nOutputs int) string {
	return fmt.Sprintf("%02dx%02d", nInputs, nOutputs)
}

// ppoiVariant is one of the fixed circuit shapes the PPOI pipeline proves
// against; inputs and outputs are the dimensions encoded in its name.
type ppoiVariant struct {
	inputs, outputs int
}

// PPOIVariants are the only circuit shapes the PPOI pipeline ever selects
// from.
var PPOIVariants = []ppoiVariant{
	{inputs: 3, outputs: 3},
	{inputs: 13, outputs: 13},
}

// SelectPPOIVariant picks the smallest PPOIVariants entry whose dimensions
// dominate (inputs, outputs) in both axes — i.e. the smallest circuit an
// under-sized proof can be zero-padded into. Returns ErrNoDominatingVariant
// if the request exceeds every known variant.
func SelectPPOIVariant(inputs, outputs int) (string, error) {
	best := -1
	for i, v := range PPOIVariants {
		if v.inputs < inputs || v.outputs < outputs {
			continue
		}
		if best == -1 || (v.inputs < PPOIVariants[best].inputs) {
			best = i
		}
	}
	if best == -1 {
		return "", ErrNoDominatingVariant
	}
	return VariantKey(PPOIVariants[best].inputs, PPOIVariants[best].outputs), nil
}
