// The main package for the moviemeta executable.
package main

import (
	"github.com/filmatlas/moviemeta/cmd"
)

func main() {
	cmd.Execute()
}
