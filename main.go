package main

import "github.com/melonicecream/cc-enhanced/cmd"

func main() {
	cmd.Execute()
}
