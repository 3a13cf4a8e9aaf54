package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/satriahrh/arunika/interview/internal/config"
)

func newTopicsCommand(root *rootOptions) *cobra.Command {
	var topicFile string
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "List the topics available for practice",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := root.newLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			cfg, err := config.Load(logger)
			if err != nil {
				return err
			}
			comps, err := buildComponents(cmd.Context(), cfg, buildOptions{topicFile: topicFile, memoryReports: true}, logger)
			if err != nil {
				return err
			}
			defer comps.Close(cmd.Context(), logger)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTOPIC\tCATEGORY\tQUESTIONS")
			for _, topic := range comps.topics.ListTopics(cmd.Context()) {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", topic.ID, topic.Topic, topic.Category, len(topic.Questions))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&topicFile, "topic-file", "", "YAML or JSON topic pack")
	return cmd
}
