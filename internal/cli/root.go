package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/rushapp/rushcast/internal/backend"
	"github.com/rushapp/rushcast/internal/config"
	"github.com/rushapp/rushcast/internal/logging"
	"github.com/rushapp/rushcast/internal/voting"
)

func Main() {
	if err := newRoot().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRoot() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:   "rushcast",
		Short: "rushcast admin CLI",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (yaml)")

	root.AddCommand(tallyCmd(&cfgPath))
	root.AddCommand(setQuestionCmd(&cfgPath))
	root.AddCommand(clearVotesCmd(&cfgPath))
	root.AddCommand(eligibilityCmd(&cfgPath))
	root.AddCommand(hashTokenCmd())
	return root
}

// withBackends loads config and opens the shared store and bus. An in-memory store would
// only be visible to this process, so the CLI refuses it.
func withBackends(cfgPath string, fn func(ctx context.Context, b *backend.Set) error) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if cfg.Store.Driver != config.DriverPostgres {
		return fmt.Errorf("the CLI needs store.driver=postgres, got %q", cfg.Store.Driver)
	}
	if cfg.Bus.Driver == config.DriverMemory {
		return fmt.Errorf("the CLI needs a shared bus (postgres or nats) so the daemon hears about changes")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	log := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	b, err := backend.Open(ctx, cfg, true, log)
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(ctx, b)
}

func withService(cfgPath string, fn func(ctx context.Context, svc *voting.Service) error) error {
	return withBackends(cfgPath, func(ctx context.Context, b *backend.Set) error {
		return fn(ctx, voting.NewService(b.Store, b.Bus, logging.New(os.Stderr, "warn", "text")))
	})
}

func setQuestionCmd(cfgPath *string) *cobra.Command {
	var unset bool

	cmd := &cobra.Command{
		Use:   "set-question [question...]",
		Short: "Post the active question (or clear it with --clear)",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := strings.Join(args, " ")
			if !unset && strings.TrimSpace(q) == "" {
				return fmt.Errorf("question required (or pass --clear)")
			}
			if unset {
				q = ""
			}
			return withService(*cfgPath, func(ctx context.Context, svc *voting.Service) error {
				return svc.SetQuestion(ctx, q)
			})
		},
	}
	cmd.Flags().BoolVar(&unset, "clear", false, "clear the active question")
	return cmd
}

func clearVotesCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-votes",
		Short: "Delete every recorded vote",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(*cfgPath, func(ctx context.Context, svc *voting.Service) error {
				return svc.ClearVotes(ctx)
			})
		},
	}
}

func eligibilityCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eligibility",
		Short: "Manage the ineligible-voter list",
	}

	set := func(use, short string, eligible bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <gtid>...",
			Short: short,
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withService(*cfgPath, func(ctx context.Context, svc *voting.Service) error {
					for _, id := range args {
						if err := svc.SetEligibility(ctx, id, eligible); err != nil {
							return fmt.Errorf("%s: %w", id, err)
						}
					}
					return nil
				})
			},
		}
	}
	cmd.AddCommand(set("add", "Mark voters ineligible", false))
	cmd.AddCommand(set("remove", "Make voters eligible again", true))

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List ineligible voters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(*cfgPath, func(ctx context.Context, svc *voting.Service) error {
				ids, err := svc.Ineligible(ctx)
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			})
		},
	})
	return cmd
}

func hashTokenCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-token [token]",
		Short: "Print the bcrypt hash to use as api.admin_token_hash (reads stdin when no token is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := readToken(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(token), cost)
			if err != nil {
				return fmt.Errorf("hash token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func readToken(args []string, in io.Reader) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return "", fmt.Errorf("empty token")
	}
	return token, nil
}
