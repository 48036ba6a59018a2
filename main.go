package main

import (
	"crypto/rand"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/nagisa/bernoulli-distribution/src/rng"
	"github.com/nagisa/bernoulli-distribution/src/server"
)

func main() {
	zapLogger, _ := zap.NewProduction()
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	port := os.Getenv("PORT")
	if port == "" {
		port = "777"
	}

	var (
		device io.Reader
		health *rng.Health
	)
	if os.Getenv("SERIAL_DEVICE_NAME") != "" {
		var err error
		device, health, err = rng.NewSerialRNGFromEnv()
		if err != nil {
			log.Fatal(err)
		}
	} else {
		log.Warn("SERIAL_DEVICE_NAME not set; falling back to crypto/rand")
		device = rand.Reader
		health = rng.NewHealth()
		health.Set(true, "")
	}

	// one device shared by the flipper, the uuid/bytes endpoints and the
	// background health checker
	device = rng.NewLockedReader(device)

	server.New(port, device, health, log).RunOrDie()
}
