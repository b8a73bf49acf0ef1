package main

import (
	"os"

	"github.com/assimon/bepusdt/command"
	"github.com/assimon/bepusdt/config"
	"github.com/gookit/color"
)

func main() {
	defer func() {
		if err := recover(); err != nil {
			color.Error.Println("[bepusdt panic!!!] ", err)
			os.Exit(2)
		}
	}()
	if len(os.Args) < 2 {
		color.Green.Printf("%s\n", " ____  _____                       _ _   \n| __ )| ____|_ __  _   _ ___  __| | |_ \n|  _ \\|  _| | '_ \\| | | / __|/ _` | __|\n| |_) | |___| |_) | |_| \\__ \\ (_| | |_ \n|____/|_____| .__/ \\__,_|___/\\__,_|\\__|\n            |_|                        ")
		color.Infof("BEpusdt client version(%s)\n", config.GetAppVersion())
	}
	if err := command.Execute(); err != nil {
		color.Error.Println(err)
		os.Exit(1)
	}
}
