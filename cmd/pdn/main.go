package main

import "github.com/ohowland/pdn_core/cmd/pdn/cmd"

func main() {
	cmd.Execute()
}
