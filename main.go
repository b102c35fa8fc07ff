package main

import "github.com/theirongolddev/bmadchat/cmd"

func main() {
	cmd.Execute()
}
