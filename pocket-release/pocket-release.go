package main

import (
	"github.com/opengateware/pocket-release/cmd/pocket-release/cmd"
)

func main() {
	cmd.Execute()
}
