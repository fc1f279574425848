// The main package for the leadscout executable.
package main

import (
	"github.com/hossagent/leadscout/cmd"
)

func main() {
	cmd.Execute()
}
