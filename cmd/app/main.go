// entry point to the car rental booking service
package main

import (
	"github.com/ds124wfegd/WB_L3/carrent/config"
	"github.com/ds124wfegd/WB_L3/carrent/internal/appServer"

	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))

	viperInstance, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Cannot load config. Error: {%s}", err.Error())
	}

	cfg, err := config.ParseConfig(viperInstance)
	if err != nil {
		logrus.Fatalf("Cannot parse config. Error: {%s}", err.Error())
	}

	logrus.WithFields(logrus.Fields{
		"version":   cfg.Server.AppVersion,
		"env":       cfg.Server.Env,
		"storage":   cfg.Database.Driver,
		"transport": cfg.Notification.Transport,
	}).Info("Config loaded")

	appServer.NewServer(cfg)
}
