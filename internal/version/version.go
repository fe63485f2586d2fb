// ABOUTME: Product and version identification
// ABOUTME: Reported in logs and by the command line tools
package version

import "fmt"

const (
	Product      = "pwmaudio"
	Manufacturer = "pwmaudio-go"
	Version      = "0.3.0"
)

// Banner returns the one-line identification printed by the tools, e.g.
// "pwmaudio 0.3.0 (pwmaudio-go)". An empty tool name reports the player itself.
func Banner(tool string) string {
	name := Product
	if tool != "" {
		name = Product + "-" + tool
	}
	return fmt.Sprintf("%s %s (%s)", name, Version, Manufacturer)
}
