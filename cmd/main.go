package main

import (
	"fmt"
	"os"

	"github.com/smartcontractkit/govledger/cmd/govledger"
)

func main() {
	rootCmd := govledger.BuildGovLedgerCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
