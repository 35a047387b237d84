package main

import "github.com/chris/attune/internal/cli"

func main() {
	cli.Execute()
}
