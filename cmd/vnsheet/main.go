package main

import "vnsheet/internal/cli"

func main() {
	cli.Execute()
}
