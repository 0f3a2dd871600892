/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/userfolio/webapp/cmd"

func main() {
	cmd.Execute()
}
