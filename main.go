package main

import "example.com/ecoguard/cmd"

func main() {
	cmd.Execute()
}
