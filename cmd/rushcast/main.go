package main

import "github.com/rushapp/rushcast/internal/cli"

func main() {
	cli.Main()
}
