// Package main is the entry point for playground-relay.
package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

const (
	defaultConfigFile = "config.yaml"
	appName           = "playground-relay"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Streaming chat relay for LLM playgrounds",
	Long: `playground-relay accepts one chat request shape, forwards it to Anthropic,
Gemini or an OpenAI-compatible router with the caller's own credential, and
streams the answer back as normalized server-sent events.`,
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: ./"+defaultConfigFile+" or ~/.config/"+appName+"/"+defaultConfigFile+")")
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}
