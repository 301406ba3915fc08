package main

import (
	"github.com/nvr-ai/go-instseg/cmd/instseg/cmd"
)

func main() {
	cmd.Execute()
}
