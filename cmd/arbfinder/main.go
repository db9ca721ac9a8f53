package main

import "arbfinder/internal/cli"

func main() {
	cli.Execute()
}
