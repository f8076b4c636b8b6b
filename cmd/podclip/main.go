package main

import "github.com/forPelevin/podclip/internal/cli"

func main() {
	cli.Main()
}
