package main

import "github.com/shapescale/dialbox/internal/cli"

func main() {
	cli.Execute()
}
