package main

import "github.com/rushapp/rushcast/internal/daemon"

func main() {
	daemon.Main()
}
