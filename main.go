package main

import "github.com/pan1c/ephc/cmd"

func main() {
	cmd.Execute()
}
