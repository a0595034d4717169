package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/WhitehatD/Student-Identity-Consent/chain"
	"github.com/WhitehatD/Student-Identity-Consent/storage"
	"github.com/WhitehatD/Student-Identity-Consent/storage/model"
)

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage wallet registrations",
}

var walletGetCmd = &cobra.Command{
	Use:   "get <address>",
	Short: "Show the registration of a wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := chain.NormalizeAddress(args[0])
		if err != nil {
			return err
		}
		return withStorage(
			func(s *storage.Storage) error {
				w, err := s.Wallets().ByAddress(cmd.Context(), addr.Hex())
				if err != nil {
					return err
				}
				return printWallet(cmd.OutOrStdout(), w)
			},
		)
	},
}

var seedRecords bool

var walletRegisterCmd = &cobra.Command{
	Use:   "register <address> <displayName>",
	Short: "Register a wallet and assign it a content identifier",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := chain.NormalizeAddress(args[0])
		if err != nil {
			return err
		}
		return withStorage(
			func(s *storage.Storage) error {
				w, created, err := s.Wallets().Register(cmd.Context(), addr.Hex(), args[1])
				if err != nil {
					return err
				}
				if !created {
					fmt.Fprintln(cmd.OutOrStdout(), "Wallet already registered")
					return printWallet(cmd.OutOrStdout(), w)
				}
				if seedRecords {
					if _, err = s.Seeder().SeedCourses(cmd.Context()); err != nil {
						return err
					}
					if err = s.Seeder().SeedStudent(cmd.Context(), w.CID); err != nil {
						return err
					}
				}
				return printWallet(cmd.OutOrStdout(), w)
			},
		)
	},
}

func init() {
	walletRegisterCmd.Flags().BoolVar(&seedRecords, "seed", false, "create demo grades and a certificate")
	walletCmd.AddCommand(walletGetCmd, walletRegisterCmd)
}

func printWallet(w io.Writer, wallet *model.Wallet) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Address:\t%s\n", wallet.WalletAddress)
	fmt.Fprintf(tw, "CID:\t%s\n", wallet.CID)
	fmt.Fprintf(tw, "Display name:\t%s\n", wallet.DisplayName)
	fmt.Fprintf(tw, "Registered:\t%s\n", wallet.CreatedAt.UTC().Format(time.RFC3339))
	return tw.Flush()
}
