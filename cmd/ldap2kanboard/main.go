// Command ldap2kanboard provisions Kanboard accounts and projects from an LDAP directory.
package main

import (
	"os"

	"ldap2kanboard/internal/cli"
)

var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}
