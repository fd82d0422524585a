package main

import "github.com/k1LoW/qrbatch/cmd"

func main() {
	cmd.Execute()
}
