// downtimectl drives the downtime pipeline from the command line against the
// same snapshot store the server uses.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}
