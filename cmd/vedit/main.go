package main

import "github.com/Ignat99/electric-sub000/cmd/vedit/cmd"

func main() {
	cmd.Execute()
}
