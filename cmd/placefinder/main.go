package main

import "github.com/vietddude/placefinder/internal/cli"

func main() {
	cli.Execute()
}
