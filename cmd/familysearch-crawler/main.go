// Command familysearch-crawler runs the genealogy relationship-graph
// crawler described by the familysearch-crawler CLI.
package main

import (
	"os"

	"github.com/familysearch/crawlengine/cmd/familysearch-crawler/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
