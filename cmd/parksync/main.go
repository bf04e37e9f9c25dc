package main

import "github.com/mcoot/parksync/internal/cli"

func main() {
	cli.Execute()
}
