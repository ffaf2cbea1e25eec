package main

import "github.com/vtable/vtable/cmd"

func main() {
	cmd.Execute()
}
