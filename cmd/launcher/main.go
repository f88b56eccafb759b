package main

import "launcher/internal/cli"

func main() {
	cli.Execute()
}
