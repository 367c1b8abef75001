package main

import (
	"github.com/opengateware/pocket-release/cmd/pocket-publish/cmd"
)

func main() {
	cmd.Execute()
}
