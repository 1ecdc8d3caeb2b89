// Command adminhash prints the bcrypt hash to use as ADMIN_PASSWORD_HASH.
//
//	echo -n 'secret' | adminhash
//	echo -n 'secret' | adminhash --check '$2a$10$...'
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/imrishuroy/go-bakery-orderflow/internal/auth"
)

func newRootCmd() *cobra.Command {
	var check string
	cmd := &cobra.Command{
		Use:           "adminhash",
		Short:         "Hash the admin password read from stdin",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd)
			if err != nil {
				return err
			}
			if check != "" {
				if !auth.CheckPassword(check, password) {
					return errors.New("password does not match hash")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().StringVar(&check, "check", "", "verify the password against this hash instead of printing a new one")
	return cmd
}

// readPassword takes the first line of stdin, without its line ending.
func readPassword(cmd *cobra.Command) (string, error) {
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.New("no password on stdin")
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password is empty")
	}
	return password, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "adminhash:", err)
		os.Exit(1)
	}
}
