// Command entrack runs mutation scripts against tracked entities and
// inspects the snapshot store.
package main

import "github.com/mesh-intelligence/entrack/internal/cli"

func main() {
	cli.Execute()
}
