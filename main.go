package main

import "afterglow-engine/cmd"

func main() {
	cmd.Execute()
}
