/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"context"

	"github.com/taskboard/apiserver/cmd"
)

func main() {
	cmd.Execute(context.Background())
}
