package main

import "release-builder/cmd"

func main() {
	cmd.Execute()
}
