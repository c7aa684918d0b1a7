package main

import "github.com/marshallshelly/pebble-study/cmd/pebble-study/commands"

func main() {
	commands.Execute()
}
