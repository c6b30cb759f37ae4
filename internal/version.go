package internal

import "fmt"

var (
	Version = ""
	Commit  = ""
)

func PrintableVersion() string {
	return fmt.Sprintf("piperbook version: %s (%s)", Version, Commit)
}
