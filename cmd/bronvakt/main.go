package main

import "github.com/bronvakt/bronvakt/internal/cli/cmd"

func main() {
	cmd.Execute()
}
