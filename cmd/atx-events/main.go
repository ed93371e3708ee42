package main

import "github.com/atxevents/atx-events/internal/cli"

func main() {
	cli.Execute()
}
