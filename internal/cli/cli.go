// Package cli holds the cachectl commands. Each command drives the cache
// adapter directly against the configured backend, without the HTTP server.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/leafsii/cache-redis/internal/cache"
	"github.com/spf13/cobra"
)

// Opener connects to the backend and returns a ready adapter plus the
// function that releases it
type Opener func(ctx context.Context) (*cache.Adapter, func() error, error)

type session struct {
	open    Opener
	adapter *cache.Adapter
	close   func() error
	timeout time.Duration
}

// Execute runs cachectl with args. The backend is opened once the command
// line has been parsed and is released before Execute returns.
func Execute(ctx context.Context, open Opener, args []string, stdout, stderr io.Writer) error {
	s := &session{open: open}
	defer func() {
		if s.close != nil {
			s.close()
		}
	}()

	root := newRootCmd(s)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func newRootCmd(s *session) *cobra.Command {
	root := &cobra.Command{
		Use:           "cachectl",
		Short:         "Manage cache stores and documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			adapter, closeFn, err := s.open(cmd.Context())
			if err != nil {
				return err
			}
			s.adapter, s.close = adapter, closeFn
			return nil
		},
	}

	root.PersistentFlags().DurationVar(&s.timeout, "timeout", 30*time.Second, "Deadline for the whole command")

	root.AddCommand(
		newCreateStoreCmd(s),
		newDestroyStoreCmd(s),
		newPutCmd(s),
		newGetCmd(s),
		newUpdateCmd(s),
		newDeleteCmd(s),
		newListCmd(s),
	)
	return root
}

func (s *session) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// result prints the success envelope, or the failure envelope on stderr
// while still returning err so the process exits non-zero
func result(cmd *cobra.Command, v any, err error) error {
	if err != nil {
		logJSON(cmd, true, cache.Failure(err))
		return err
	}
	return logJSON(cmd, false, v)
}

func logJSON(cmd *cobra.Command, toStderr bool, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if toStderr {
		out = cmd.ErrOrStderr()
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// parseValue accepts a JSON document; anything that is not valid JSON is
// stored as a JSON string
func parseValue(raw string) json.RawMessage {
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}
	quoted, _ := json.Marshal(raw)
	return quoted
}

func ttlFlag(cmd *cobra.Command) *int64 {
	if !cmd.Flags().Changed("ttl") {
		return nil
	}
	ttl, _ := cmd.Flags().GetInt64("ttl")
	return &ttl
}
