package main

import (
	"log"

	corecmd "github.com/m3rciful/mediabot/core/cmd"
	"github.com/m3rciful/mediabot/internal/app"
	"github.com/m3rciful/mediabot/internal/config"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			cfg, err := config.Load(path)
			if err != nil {
				return nil, err
			}
			return cfg, nil
		},
		Bootstrap: app.Bootstrap,
	})
	if err != nil {
		log.Fatalf("mediabot: %v", err)
	}
}
