package main

import (
	"context"
	"log"
	"os"

	"github.com/ComputerAnything/cpta-blog-sub001/internal/buildinfo"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server"
	"github.com/ComputerAnything/cpta-blog-sub001/internal/server/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
