package main

import "facewatch-go/internal/cli"

func main() {
	cli.Execute()
}
