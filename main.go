package main

import "github.com/msumarli/rolodex/cmd"

func main() {
	cmd.Execute()
}
