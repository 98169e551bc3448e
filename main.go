package main

import "github.com/carelog/carelog_backend/cmd"

func main() {
	cmd.Execute()
}
