// Command taguchi-engine runs, resumes, or reports on a Taguchi
// parameter-optimization experiment against an external target executable.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
