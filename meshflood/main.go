package main

import (
	"github.com/sarchlab/meshflood/meshflood/cmd"
	"github.com/tebeka/atexit"
)

func main() {
	cmd.Execute()
	atexit.Exit(0)
}
