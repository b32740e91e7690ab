package main

import (
	"os"

	"github.com/SAP-F-2025/quiz-service/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
