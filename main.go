package main

import (
	"github.com/shamash-tools/shamash/cmd"
)

func main() {
	cmd.Execute()
}
