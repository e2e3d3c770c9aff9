package main

import "github.com/fakeyudi/proofread/cmd"

func main() {
	cmd.Execute()
}
