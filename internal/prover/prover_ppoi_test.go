package prover

import (
	"context"
	"testing"

	"github.com/privacypool/engine/pkg/types"
)

// TestProvePPOIBalancedRoundTrip exercises the smallest PPOI variant
// (3x3, zero-padded up from 1x1) end to end: compile, setup, prove, verify.
func TestProvePPOIBalancedRoundTrip(t *testing.T) {
	p := New()

	var path [PoiDepth]types.FE
	pub := PPOIPublicInputs{
		BlindedCommitmentsIn:  []types.FE{feVal(1)},
		BlindedCommitmentsOut: []types.FE{feVal(2)},
		PoiMerkleroots:        []types.FE{EmptyPoiTreeMerkleroot},
		TxidMerkleroot:        feVal(3),
	}
	priv := PPOIPrivateInputs{
		ValueIn:       []types.Uint128{{Lo: 500}},
		ValueOut:      []types.Uint128{{Lo: 500}},
		LeavesIndices: []uint64{0},
		PathElements:  [][PoiDepth]types.FE{path},
	}

	if _, err := p.ProvePPOI(context.Background(), pub, priv); err != nil {
		t.Fatalf("ProvePPOI: %v", err)
	}
}

// TestProvePPOIAllowsSurplusInput confirms sum(valuesIn) >= sum(valuesOut)
// is accepted, not just exact equality.
func TestProvePPOIAllowsSurplusInput(t *testing.T) {
	p := New()

	var path [PoiDepth]types.FE
	pub := PPOIPublicInputs{
		BlindedCommitmentsIn:  []types.FE{feVal(1)},
		BlindedCommitmentsOut: []types.FE{feVal(2)},
		PoiMerkleroots:        []types.FE{EmptyPoiTreeMerkleroot},
		TxidMerkleroot:        feVal(3),
	}
	priv := PPOIPrivateInputs{
		ValueIn:       []types.Uint128{{Lo: 700}},
		ValueOut:      []types.Uint128{{Lo: 500}},
		LeavesIndices: []uint64{0},
		PathElements:  [][PoiDepth]types.FE{path},
	}

	if _, err := p.ProvePPOI(context.Background(), pub, priv); err != nil {
		t.Fatalf("ProvePPOI: %v", err)
	}
}

// TestProvePPOIRejectsValueConservationViolation confirms outputs exceeding
// inputs fail proving.
func TestProvePPOIRejectsValueConservationViolation(t *testing.T) {
	p := New()

	var path [PoiDepth]types.FE
	pub := PPOIPublicInputs{
		BlindedCommitmentsIn:  []types.FE{feVal(1)},
		BlindedCommitmentsOut: []types.FE{feVal(2)},
		PoiMerkleroots:        []types.FE{EmptyPoiTreeMerkleroot},
		TxidMerkleroot:        feVal(3),
	}
	priv := PPOIPrivateInputs{
		ValueIn:       []types.Uint128{{Lo: 400}},
		ValueOut:      []types.Uint128{{Lo: 500}},
		LeavesIndices: []uint64{0},
		PathElements:  [][PoiDepth]types.FE{path},
	}

	if _, err := p.ProvePPOI(context.Background(), pub, priv); err == nil {
		t.Error("expected value conservation violation to fail proving")
	}
}

func TestSelectPPOIVariantPaddingShapeMatchesCircuit(t *testing.T) {
	key, err := SelectPPOIVariant(1, 1)
	if err != nil {
		t.Fatalf("SelectPPOIVariant: %v", err)
	}
	if key != "03x03" {
		t.Fatalf("expected 1x1 to pad into the 3x3 variant, got %s", key)
	}
}
