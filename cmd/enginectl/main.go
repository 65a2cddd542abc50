// Engine CLI - command-line interface for wallet and UTXO-tree operations.
// It has no RPC channel to a running daemon and opens none of engined's
// backends: the wallet commands use no storage, and the tree commands use a
// throwaway in-memory backend.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/privacypool/engine/internal/crypto"
	"github.com/privacypool/engine/internal/merkle"
	"github.com/privacypool/engine/internal/storage"
	"github.com/privacypool/engine/internal/wallet"
	"github.com/privacypool/engine/pkg/types"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("enginectl v%s\n", version)

	case "help":
		printUsage()

	case "wallet":
		if len(os.Args) < 3 {
			fmt.Println("Usage: enginectl wallet <subcommand>")
			fmt.Println("Subcommands: new, address")
			os.Exit(1)
		}
		cmdWallet(os.Args[2:])

	case "tree":
		if len(os.Args) < 3 {
			fmt.Println("Usage: enginectl tree <subcommand>")
			fmt.Println("Subcommands: root, proof <tree> <index>")
			os.Exit(1)
		}
		cmdTree(os.Args[2:])

	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("enginectl - command-line interface for the privacy wallet engine")
	fmt.Println()
	fmt.Println("Usage: enginectl <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  version   Show version information")
	fmt.Println("  help      Show this help message")
	fmt.Println("  wallet    Wallet operations (new, address)")
	fmt.Println("  tree      UTXO tree operations (root, proof)")
}

func cmdWallet(args []string) {
	if len(args) == 0 {
		return
	}

	switch args[0] {
	case "new":
		spendingKey, err := crypto.RandomFE()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		viewingKey, err := crypto.RandomFE()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		w, err := wallet.NewWalletFromKeys(types.WalletID("cli-wallet"), spendingKey, viewingKey, types.EthAddress{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println("Wallet created. Save your key material:")
		fmt.Printf("  Spending private key: 0x%x\n", spendingKey.Bytes())
		fmt.Printf("  Viewing private key:   0x%x\n", viewingKey.Bytes())
		fmt.Printf("  Address:               %s\n", w.Address)

	case "address":
		if len(args) < 2 {
			fmt.Println("Usage: enginectl wallet address <0zk-address>")
			os.Exit(1)
		}
		mpk, vpk, err := wallet.DecodeAddress(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Decoded address:")
		fmt.Printf("  Master public key:  0x%x\n", mpk.Bytes())
		fmt.Printf("  Viewing public key: x=0x%x y=0x%x\n", vpk.X.Bytes(), vpk.Y.Bytes())

	default:
		fmt.Printf("Unknown wallet command: %s\n", args[0])
	}
}

func cmdTree(args []string) {
	if len(args) == 0 {
		return
	}

	ctx := context.Background()
	db := storage.NewVolatileBackend()
	defer db.Close()

	tree, err := merkle.New(storage.NewKVMerkleStore(db))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	switch args[0] {
	case "root":
		root, err := tree.GetRoot(ctx, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Tree 0 root: %s\n", root.String())

	case "proof":
		fmt.Println("Usage: enginectl tree proof <tree> <index> requires a populated tree; run against engined's durable backend via an embedding client")

	default:
		fmt.Printf("Unknown tree command: %s\n", args[0])
	}
}
