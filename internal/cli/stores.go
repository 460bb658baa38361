package cli

import (
	"github.com/leafsii/cache-redis/internal/cache"
	"github.com/spf13/cobra"
)

func newCreateStoreCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "create-store <store>",
		Short: "Create a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.context(cmd)
			defer cancel()
			return result(cmd, cache.OK(), s.adapter.CreateStore(ctx, args[0]))
		},
	}
}

func newDestroyStoreCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "destroy-store <store>",
		Short: "Delete a store and every document in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.context(cmd)
			defer cancel()
			return result(cmd, cache.OK(), s.adapter.DestroyStore(ctx, args[0]))
		},
	}
}
