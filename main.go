package main

import "github.com/lensferno/imgtool/cmd"

func main() {
	cmd.Execute()
}
