package main

import (
	"os"

	"github.com/taikoxyz/batchwallet/cmd"
	"github.com/taikoxyz/batchwallet/internal/logger"
)

func main() {
	log := logger.NewJSONLogger()
	if err := cmd.Execute(); err != nil {
		log.Errorw("execution failed", "error", err)
		os.Exit(1)
	}
}
