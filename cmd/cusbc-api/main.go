package main

import (
	"github.com/shanedertrain/cusbc/internal/api"
	"github.com/shanedertrain/cusbc/internal/cli"
	_ "github.com/shanedertrain/cusbc/internal/logsetup"
)

func main() {
	cli.StandardMain(
		func() cli.Configurable { return api.NewConfig() },
		api.NewAPIHandler(),
	)
}
