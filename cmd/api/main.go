package main

import "github.com/emilythestrangee/git-forum/backend/internal/cmd"

func main() {
	cmd.Run()
}
