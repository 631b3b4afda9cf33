package main

import (
	"vmanager/internal/cli/cmd"
)

func main() {
	cmd.Execute()
}
