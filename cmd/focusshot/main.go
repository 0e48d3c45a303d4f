package main

import "github.com/bryanchriswhite/focusshot/cmd/focusshot/commands"

func main() {
	commands.Execute()
}
