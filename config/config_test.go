package config

import "testing"

func TestDefaultChainTableLookup(t *testing.T) {
	tbl := DefaultChainTable()

	entry, ok := tbl.Lookup("ethereum")
	if !ok {
		t.Fatalf("expected ethereum to be present")
	}
	if entry.ChainID.ID != 1 {
		t.Errorf("expected chain id 1, got %d", entry.ChainID.ID)
	}

	if _, ok := tbl.Lookup("not-a-real-network"); ok {
		t.Errorf("expected unknown network to report ok=false, not a zero-value default")
	}
}

func TestChainTableAdd(t *testing.T) {
	tbl := DefaultChainTable()
	tbl.Add("devnet", 0, 1337)

	entry, ok := tbl.Lookup("devnet")
	if !ok {
		t.Fatalf("expected devnet to be present after Add")
	}
	if entry.ChainID.ChainType != 0 || entry.ChainID.ID != 1337 {
		t.Errorf("unexpected chain id: %+v", entry.ChainID)
	}
}
