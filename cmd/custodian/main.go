package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
)

const helpDescription = `
Hand state records to an ephemeral executor and take them back.

A record is mutated locally by its authority until it is delegated. While
delegated only the executor may change it; commits copy the executor's value
back into the primary store, and undelegate returns custody.

Configure via file ($HOME/.custodian/config.toml), CUSTODIAN_* env, or flags.
`

var exampleUsage = strings.TrimSpace(`
  custodian init counter --authority 0x1111...1111
  custodian add counter 20 --authority 0x1111...1111
  custodian delegate counter --authority 0x1111...1111 --executor 0xaaaa...aaaa --commit-frequency 30s
  custodian commit counter --executor 0xaaaa...aaaa --value 42
  custodian undelegate counter --executor 0xaaaa...aaaa --value 42
  custodian show counter
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	root, c := newRootCmd(os.Stdout)
	root.Version = fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH)

	if err := root.Execute(); err != nil {
		c.log.Error().Err(err).Msg("custodian")
		os.Exit(1)
	}
}
