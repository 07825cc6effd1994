package main

import "github.com/jsphweid/chordscribe/cmd"

func main() {
	cmd.Execute()
}
