package main

import (
	"github.com/z-Shi/TangoWithDjango/cmd"
)

func main() {
	cmd.Execute()
}
