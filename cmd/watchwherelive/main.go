package main

import "github.com/pfrederiksen/watchwherelive/internal/cli"

func main() {
	cli.Execute()
}
