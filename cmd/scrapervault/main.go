// The main package for the scrapervault executable.
package main

import (
	"github.com/autoscraper/scrapervault/cmd"
)

func main() {
	cmd.Execute()
}
