package main

import "github.com/vietddude/taskrelay/internal/cli"

func main() {
	cli.Execute()
}
