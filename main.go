package main

import "blazeoffice/commands"

func main() {
	commands.Execute()
}
