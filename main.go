package main

import "github.com/muxherd/muxherd/cmd"

func main() {
	cmd.Execute()
}
