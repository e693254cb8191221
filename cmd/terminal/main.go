package main

import (
	"tillsync/cmd/terminal/cmd"
)

func main() {
	cmd.Execute()
}
