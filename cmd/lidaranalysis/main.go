// Package main is the lidaranalysis command itself.
package main

import (
	"log"
	"os"

	"github.com/sebastian-eichelbaum/OpenWalnut-Modules-sub001/cli"
)

func main() {
	if err := cli.NewApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
