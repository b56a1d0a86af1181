package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dmitrijs2005/receiptvault/internal/common"
)

// parseCommand parses fs over args allowing flags before and after the
// positional arguments, which are returned in order.
func parseCommand(fs *flag.FlagSet, args []string) ([]string, error) {
	fs.SetOutput(io.Discard)

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, usageError{err.Error()}
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

// oneID parses args expecting exactly one receipt ID.
func oneID(fs *flag.FlagSet, args []string) (string, error) {
	pos, err := parseCommand(fs, args)
	if err != nil {
		return "", err
	}
	if len(pos) != 1 {
		return "", usageError{fmt.Sprintf("%s expects exactly one receipt id", fs.Name())}
	}
	return pos[0], nil
}

// Upload sends a PDF receipt. orderId is required.
func (a *App) Upload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	order := fs.String("order", "", "order id (required)")
	payment := fs.String("payment", "", "payment id")
	bank := fs.String("bank", "", "bank name")
	account := fs.String("account", "", "account number")
	extra := metaFlag{}
	fs.Var(extra, "meta", "extra metadata as key=value (repeatable)")

	pos, err := parseCommand(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return usageError{"upload expects exactly one PDF file"}
	}
	if *order == "" {
		return usageError{"upload requires -order"}
	}

	meta := map[string]string(extra)
	for k, v := range map[string]string{
		common.MetaOrderID:       *order,
		common.MetaPaymentID:     *payment,
		common.MetaBankName:      *bank,
		common.MetaAccountNumber: *account,
	} {
		if v != "" {
			meta[k] = v
		}
	}

	id, err := a.receipts.Upload(ctx, pos[0], meta)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Receipt uploaded: %s\n", id)
	return nil
}

func (a *App) Meta(ctx context.Context, args []string) error {
	id, err := oneID(flag.NewFlagSet("meta", flag.ContinueOnError), args)
	if err != nil {
		return err
	}

	m, err := a.receipts.Metadata(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "ID:          %s\n", m.ID)
	fmt.Fprintf(a.out, "Filename:    %s\n", m.Filename)
	fmt.Fprintf(a.out, "Uploaded:    %s\n", m.UploadDate.UTC().Format(time.RFC3339))
	fmt.Fprintf(a.out, "Size:        %d bytes\n", m.Length)
	if m.ContentType != "" {
		fmt.Fprintf(a.out, "Type:        %s\n", m.ContentType)
	}

	keys := make([]string, 0, len(m.Metadata))
	for k := range m.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(a.out, "  %s: %s\n", k, m.Metadata[k])
	}
	return nil
}

func (a *App) Download(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	out := fs.String("o", "", "output path (default: original filename)")

	id, err := oneID(fs, args)
	if err != nil {
		return err
	}

	path, n, err := a.receipts.Download(ctx, id, *out)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved %s (%d bytes)\n", path, n)
	return nil
}

// Link prints a presigned download URL. With -o the file is fetched
// through the link instead.
func (a *App) Link(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("link", flag.ContinueOnError)
	out := fs.String("o", "", "download through the link into this path")

	id, err := oneID(fs, args)
	if err != nil {
		return err
	}

	if *out != "" {
		n, err := a.receipts.FetchLink(ctx, id, *out)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Saved %s (%d bytes)\n", *out, n)
		return nil
	}

	l, err := a.receipts.Link(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, l.URL)
	fmt.Fprintf(a.out, "Expires at %s\n", l.ExpiresAt.UTC().Format(time.RFC3339))
	return nil
}
