package main

import (
	stdLog "log"
	"os"

	"github.com/joho/godotenv"

	"github.com/Astemirdum/library-portal/portal/app"
	"github.com/Astemirdum/library-portal/portal/config"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		stdLog.Fatal("load envs from .env ", err)
	}
	if err := app.Run(config.NewConfig(), os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
