package main

import (
	"github.com/ziadkadry99/teamsync/cmd"
)

func main() {
	cmd.Main()
}
