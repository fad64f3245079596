package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/username-extractor/internal/ai"
	"github.com/ignatzorin/username-extractor/internal/card"
	"github.com/ignatzorin/username-extractor/internal/config"
	"github.com/ignatzorin/username-extractor/internal/intake"
	"github.com/ignatzorin/username-extractor/internal/models"
	"github.com/ignatzorin/username-extractor/internal/notify"
	"github.com/ignatzorin/username-extractor/internal/preview"
	"github.com/ignatzorin/username-extractor/internal/store"
)

// result - строка вывода для одного файла.
type result struct {
	File             string `json:"file"`
	Kind             string `json:"kind"`
	FilenameUsername string `json:"filename_username"`
	AIUsername       string `json:"ai_username,omitempty"`
	Error            string `json:"error,omitempty"`

	entry models.Entry
}

// workspace - рабочее пространство CLI без HTTP и временного хранилища.
type workspace struct {
	store  *store.Store
	intake *intake.Surface
}

func newWorkspace(notifier notify.Notifier) *workspace {
	st := store.New(preview.NewRegistry("/previews"), notifier)
	// Очистка из CLI не запрашивается, секрет нужен только для конструктора.
	return &workspace{store: st, intake: intake.New(st, nil, "extractctl", 0)}
}

func (w *workspace) add(ctx context.Context, paths []string) ([]result, error) {
	entries, err := w.intake.AcceptPaths(ctx, paths)
	if err != nil {
		return nil, err
	}
	out := make([]result, len(entries))
	for i, e := range entries {
		out[i] = result{
			File:             e.FileName,
			Kind:             string(e.Kind),
			FilenameUsername: e.DisplayName,
			entry:            e,
		}
	}
	return out, nil
}

func namesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "names <file>...",
		Short: "Print the username derived from each file name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := newWorkspace(nil).add(cmd.Context(), args)
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), results, asJSON, false)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

func scanCmd(verbose *bool) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "scan <file>...",
		Short: "Extract usernames from file names and image contents with AI",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			var notifier notify.Notifier = notify.Nop{}
			if *verbose {
				stderr := cmd.ErrOrStderr()
				notifier = notify.Func(func(kind notify.Kind, message string) {
					fmt.Fprintf(stderr, "[%s] %s\n", kind, message)
				})
			}

			ws := newWorkspace(notifier)
			results, err := ws.add(cmd.Context(), args)
			if err != nil {
				return err
			}

			// Без ключа каждая карточка получит ошибку, имена из файлов всё равно выводятся.
			extractor := ai.NewFromConfig(cfg)
			failed := scanAll(cmd.Context(), card.NewBoard(ws.store, extractor, card.WithNotifier(notifier)), results)

			if err := printResults(cmd.OutOrStdout(), results, asJSON, true); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scans failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

// scanAll сканирует файлы по одному и возвращает число ошибок.
func scanAll(ctx context.Context, board *card.Board, results []result) int {
	failed := 0
	for i := range results {
		r := &results[i]
		c, err := board.Card(r.entry.ID)
		if err == nil {
			r.AIUsername, err = c.Scan(ctx)
		}
		if err != nil {
			if errors.Is(err, card.ErrFileTooLarge) {
				r.Error = card.TooLargeMessage
			} else {
				r.Error = err.Error()
			}
			failed++
		}
	}
	return failed
}

func printResults(w io.Writer, results []result, asJSON, withAI bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if withAI {
		fmt.Fprintln(tw, "FILE\tKIND\tFILENAME\tAI")
	} else {
		fmt.Fprintln(tw, "FILE\tKIND\tFILENAME")
	}
	for _, r := range results {
		if !withAI {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.File, r.Kind, r.FilenameUsername)
			continue
		}
		aiName := r.AIUsername
		if r.Error != "" {
			aiName = "error: " + r.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.File, r.Kind, r.FilenameUsername, aiName)
	}
	return tw.Flush()
}
