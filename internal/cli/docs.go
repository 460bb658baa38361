package cli

import (
	"github.com/leafsii/cache-redis/internal/cache"
	"github.com/spf13/cobra"
)

func newPutCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <store> <key> <value>",
		Short: "Create a document, failing if the key exists",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.context(cmd)
			defer cancel()

			doc, err := s.adapter.CreateDoc(ctx, cache.DocInput{
				Store: args[0],
				Key:   args[1],
				Value: parseValue(args[2]),
				TTL:   ttlFlag(cmd),
			})
			return result(cmd, cache.OKDoc(doc), err)
		},
	}
	cmd.Flags().Int64("ttl", 0, "Time to live in milliseconds")
	return cmd
}

func newGetCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "get <store> <key>",
		Short: "Fetch a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.context(cmd)
			defer cancel()

			doc, err := s.adapter.GetDoc(ctx, cache.DocRef{Store: args[0], Key: args[1]})
			return result(cmd, cache.OKDoc(doc), err)
		},
	}
}

func newUpdateCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <store> <key> <value>",
		Short: "Write a document whether or not it exists",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.context(cmd)
			defer cancel()

			err := s.adapter.UpdateDoc(ctx, cache.DocInput{
				Store: args[0],
				Key:   args[1],
				Value: parseValue(args[2]),
				TTL:   ttlFlag(cmd),
			})
			return result(cmd, cache.OK(), err)
		},
	}
	cmd.Flags().Int64("ttl", 0, "Time to live in milliseconds")
	return cmd
}

func newDeleteCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <store> <key>",
		Short: "Delete a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.context(cmd)
			defer cancel()
			return result(cmd, cache.OK(), s.adapter.DeleteDoc(ctx, cache.DocRef{Store: args[0], Key: args[1]}))
		},
	}
}

func newListCmd(s *session) *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "list <store>",
		Short: "List documents whose keys match a glob pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.context(cmd)
			defer cancel()

			docs, err := s.adapter.ListDocs(ctx, cache.Query{Store: args[0], Pattern: pattern})
			return result(cmd, cache.OKDocs(docs), err)
		},
	}
	cmd.Flags().StringVarP(&pattern, "pattern", "p", "*", "Glob pattern over document keys")
	return cmd
}
