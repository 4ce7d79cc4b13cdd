package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"quiz-duel-service/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		logrus.WithError(err).Error("quiz-duel exited")
		os.Exit(1)
	}
}
