package main

import "github.com/emiliopalmerini/trialscope/internal/cli"

func main() {
	cli.Execute()
}
