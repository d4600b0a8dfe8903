package main

import "github.com/contentops/scheduler/cmd"

func main() {
	cmd.Execute()
}
