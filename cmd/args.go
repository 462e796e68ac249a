package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/smazurov/ffdrive/internal/config"
	"github.com/spf13/cobra"
)

// CreateArgsCmd creates the args command.
func CreateArgsCmd() *cobra.Command {
	var configFile string
	var newlines bool

	cmd := &cobra.Command{
		Use:   "args [job-id]",
		Short: "Print the FFmpeg arguments for a job",
		Long: `Builds the full FFmpeg argument vector for the specified job ID without ` +
			`starting any process. Useful for inspecting what a job would execute.`,
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, cmdArgs []string) {
			jobID := cmdArgs[0]

			jobStore := config.NewJobStore(configFile)
			if err := jobStore.Load(); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to load jobs configuration: %v\n", err)
				os.Exit(1)
			}

			job, exists := jobStore.GetJob(jobID)
			if !exists {
				fmt.Fprintf(os.Stderr, "Job %q not found in %s\n", jobID, configFile)
				os.Exit(1)
			}

			args, err := buildJobArgs(job)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to build arguments: %v\n", err)
				os.Exit(1)
			}

			if newlines {
				for _, arg := range args {
					fmt.Println(arg)
				}
				return
			}
			fmt.Println(strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "jobs.toml", "Path to jobs configuration file")
	cmd.Flags().BoolVarP(&newlines, "newlines", "n", false, "Print one argument per line")

	return cmd
}
