package main

import (
	"fmt"
	"os"

	"spendwise/importer/cmd/categorize"
	"spendwise/importer/cmd/email"
	"spendwise/importer/cmd/export"
	"spendwise/importer/cmd/imports"
	"spendwise/importer/cmd/reconcile"
	"spendwise/importer/cmd/root"
)

func init() {
	root.Init()

	root.Cmd.AddCommand(email.Cmd)
	root.Cmd.AddCommand(imports.Cmd)
	root.Cmd.AddCommand(categorize.Cmd)
	root.Cmd.AddCommand(reconcile.Cmd)
	root.Cmd.AddCommand(export.Cmd)
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
