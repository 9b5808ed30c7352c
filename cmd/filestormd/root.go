package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "filestormd",
	Short: "Document file-upload service",
	Long: `Filestormd serves the document upload API: multipart and JSON file
ingestion, live document state with upload anchors, and a websocket
stream of upload lifecycle events. A drop folder can feed uploads from
disk, and completed uploads are recorded in a persistent asset log.`,
	Version: fmt.Sprintf("%s (%s)", version, commit),
}
