package main

import "github.com/cardbox-bot/cardbox/cmd"

func main() {
	cmd.Execute()
}
