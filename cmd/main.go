package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// cobra has already printed the error
		os.Exit(1)
	}
}
