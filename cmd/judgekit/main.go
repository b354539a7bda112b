// Command judgekit runs LLM relevance judging over NDJSON example files
// and inspects parsing strategies.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
