package main

import "github.com/medtosdigital/aulagia/cmd"

func main() {
	cmd.Execute()
}
