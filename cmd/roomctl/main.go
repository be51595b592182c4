package main

import "studyroom/internal/cli"

func main() {
	cli.Execute()
}
