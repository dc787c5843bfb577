package main

import "github.com/Taichi-iskw/yt-shorts-trend/cmd"

func main() {
	cmd.Execute()
}
