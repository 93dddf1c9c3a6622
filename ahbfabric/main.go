// Package main is the entry of the ahbfabric command.
package main

import "github.com/sarchlab/ahbfabric/ahbfabric/cmd"

func main() {
	cmd.Execute()
}
