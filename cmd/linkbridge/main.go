// Command linkbridge runs the FK-aware record migration proxy: a cobra CLI
// whose "serve" subcommand exposes GET /export and POST /import, plus
// "validate", "plan", and "report" helpers for working against a local
// file without contacting any endpoint.
package main

import "github.com/dbsmedya/linkbridge/cmd/linkbridge/cmd"

func main() {
	cmd.Execute()
}
