package cli

import (
	"context"
	"fmt"
)

// Exit codes returned by Run.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

const usage = `Usage: receipts-cli [-a URL] [-db PATH] [-timeout SEC] [-c CONFIG] <command> [args]

Commands:
  register                 create an account
  login                    log in
  logout                   forget the local session
  whoami                   print the logged-in user
  upload <file.pdf> -order ID [-payment ID] [-bank NAME] [-account NO] [-meta key=value ...]
  meta <id>                show receipt metadata
  download <id> [-o PATH]  save the receipt PDF
  link <id> [-o PATH]      print a direct download link, or download through it
  ping                     check the server
  help                     show this message`

// Run executes the command in args and returns the process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(a.errOut, usage)
		return ExitUsage
	}

	cmd, rest := args[0], args[1:]

	var err error
	switch cmd {
	case "help", "-h", "--help":
		fmt.Fprintln(a.out, usage)
		return ExitOK
	case "register":
		err = a.Register(ctx)
	case "login":
		err = a.Login(ctx)
	case "logout":
		err = a.Logout(ctx)
	case "whoami":
		err = a.WhoAmI(ctx)
	case "ping":
		err = a.Ping(ctx)
	case "upload":
		err = a.Upload(ctx, rest)
	case "meta":
		err = a.Meta(ctx, rest)
	case "download":
		err = a.Download(ctx, rest)
	case "link":
		err = a.Link(ctx, rest)
	default:
		fmt.Fprintln(a.errOut, "Unknown command:", cmd)
		fmt.Fprintln(a.errOut, usage)
		return ExitUsage
	}

	if err != nil {
		fmt.Fprintln(a.errOut, describeError(cmd, err))
		if isUsage(err) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitOK
}
