package main

import "github.com/tallyvid/tallyvid/cmd/tallyvid/cmd"

func main() {
	cmd.Execute()
}
