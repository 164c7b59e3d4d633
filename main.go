package main

import "bosko/cmd"

func main() {
	cmd.Execute()
}
