package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nebari-dev/promptlib/internal/db"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	userEmail string
	userAdmin bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage local user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create a local user",
	Long: `Create a local user in the configured database. The password is read from
the terminal without echo, or from the first line of stdin when piped.

Examples:
  promptlib user create alice --email alice@example.com
  echo "$PASSWORD" | promptlib user create ci-bot`,
	Args: cobra.ExactArgs(1),
	RunE: runUserCreate,
}

func init() {
	userCreateCmd.Flags().StringVar(&userEmail, "email", "", "Email address (default <username>@promptlib.local)")
	userCreateCmd.Flags().BoolVar(&userAdmin, "admin", false, "Grant admin rights")
	userCmd.AddCommand(userCreateCmd)
}

// readPassword prompts on a terminal or reads one line from a pipe.
func readPassword(in io.Reader, out io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, "Password: ")
		pass, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(pass), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	password, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()

	user, err := db.CreateUser(app.DB, args[0], userEmail, password, userAdmin)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)", user.Username, user.ID)
	if userAdmin {
		fmt.Fprint(cmd.OutOrStdout(), " with admin rights")
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}
