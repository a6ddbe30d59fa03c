package common

import (
	"fmt"

	"github.com/ternarybob/banner"
)

// PrintBanner prints the startup banner and the settings a long-running
// process was started with
func PrintBanner(config *Config) {
	banner.Print("Scribe", GetVersion())
	fmt.Printf("  mode       %s\n", config.Pipeline.Mode)
	fmt.Printf("  publisher  %s\n", config.Publisher.Type)
	fmt.Printf("  schedule   %s\n", config.Scheduler.Schedule)
	fmt.Printf("  data       %s\n\n", config.Storage.Badger.Path)
}
