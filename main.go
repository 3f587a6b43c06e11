// The main package for the staywatch executable.
package main

import (
	"github.com/staywatch/staywatch/cmd"
)

func main() {
	cmd.Execute()
}
