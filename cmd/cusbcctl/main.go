package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/shanedertrain/cusbc/internal/ctl"
	_ "github.com/shanedertrain/cusbc/internal/logsetup"
)

func main() {
	cmdArgs, err := ctl.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err) //nolint:errcheck
		os.Exit(1)
	}

	cli := ctl.NewCLI(cmdArgs.Config, &http.Client{}, os.Stdout, os.Stderr)
	if err := cli.Execute(cmdArgs); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err) //nolint:errcheck
		os.Exit(1)
	}
}
