package main

import "github.com/ppiankov/shellgate/internal/cli"

func main() {
	cli.Execute()
}
