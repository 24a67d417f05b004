// Command granary serves the granary HTTP API and resolves permission sets
// offline from a seed file.
package main

import "os"

func main() {
	os.Exit(Execute())
}
