package main

import (
	"github.com/opengateware/pocket-release/cmd/pocket-stage/cmd"
)

func main() {
	cmd.Execute()
}
