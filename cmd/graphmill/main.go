package main

import "github.com/graphmill/graphmill/cmd/graphmill/commands"

func main() {
	commands.Execute()
}
