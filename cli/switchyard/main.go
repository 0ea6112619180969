package main

import (
	"os"

	switchyardcmder "github.com/papercomputeco/switchyard/cmd/switchyard"
)

func main() {
	cmd := switchyardcmder.NewSwitchyardCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
