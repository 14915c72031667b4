package main

import "orgdrift/internal/cmd"

func main() {
	cmd.Execute()
}
