package main

import "taskmanager/internal/cli"

func main() {
	cli.Execute()
}
