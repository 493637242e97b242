package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sheetbridge/internal/ir"
	"github.com/roach88/sheetbridge/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
}

// ShowResult is the JSON payload of show with an entity id.
type ShowResult struct {
	Document store.DocumentRecord `json:"document"`
	Commits  []store.CommitEntry  `json:"commits"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [entity-id]",
		Short: "Print persisted documents and commit logs",
		Long: `Print a document stored by "run --db" together with its commit log.
Without an entity id, list every stored document.

Examples:
  sheetbridge show --db ./sheets.db
  sheetbridge show --db ./sheets.db actor-1 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runShow(cmd.Context(), opts, id, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runShow(ctx context.Context, opts *ShowOptions, id string, cmd *cobra.Command) error {
	configureLogging(opts.RootOptions, cmd.ErrOrStderr())
	if ctx == nil {
		ctx = context.Background()
	}

	// store.Open creates missing files; show only reads existing ones.
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	f := newFormatter(opts.RootOptions, cmd.OutOrStdout())
	if id == "" {
		docs, err := st.ListDocuments(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list documents", err)
		}
		if f.JSON() {
			return f.Success(docs)
		}
		return writeDocumentList(cmd.OutOrStdout(), docs)
	}

	doc, err := st.LoadDocument(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		if f.JSON() {
			if ferr := f.Failure(CodeNotFound, fmt.Sprintf("document %s not found", id), nil, nil); ferr != nil {
				return ferr
			}
		}
		return WrapExitError(ExitCommandError, fmt.Sprintf("document %s not found", id), err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load document", err)
	}
	commits, err := st.ReadCommits(ctx, id)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read commits", err)
	}

	res := ShowResult{Document: doc, Commits: commits}
	if f.JSON() {
		return f.Success(res)
	}
	return writeShowText(cmd.OutOrStdout(), res)
}

func writeDocumentList(w io.Writer, docs []store.DocumentRecord) error {
	if len(docs) == 0 {
		_, err := fmt.Fprintln(w, "No documents found.")
		return err
	}
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\t%s\trev=%d\n", d.ID, d.DocType, d.Name, d.Revision)
	}
	return nil
}

func writeShowText(w io.Writer, res ShowResult) error {
	d := res.Document
	data, err := ir.MarshalCanonical(d.Data)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Document: %s (%s)\n", d.ID, d.DocType)
	fmt.Fprintf(w, "  name:     %s\n", d.Name)
	if d.Img != "" {
		fmt.Fprintf(w, "  img:      %s\n", d.Img)
	}
	fmt.Fprintf(w, "  data:     %s\n", data)
	fmt.Fprintf(w, "  owner:    %t\n", d.Owner)
	fmt.Fprintf(w, "  revision: %d\n", d.Revision)
	fmt.Fprintf(w, "  hash:     %s\n", d.Hash)

	fmt.Fprintf(w, "\nCommits (%d):\n", len(res.Commits))
	for _, c := range res.Commits {
		if c.Accepted {
			fmt.Fprintf(w, "  %4d  accepted  %s\n", c.Seq, c.Snapshot.Name)
		} else {
			fmt.Fprintf(w, "  %4d  rejected  %s  (%s)\n", c.Seq, c.Snapshot.Name, c.Reason)
		}
	}
	return nil
}
