package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/WhitehatD/Student-Identity-Consent/consent"
)

var consentCmd = &cobra.Command{
	Use:   "consent",
	Short: "Query consents recorded on chain",
}

var consentCheckCmd = &cobra.Command{
	Use:   "check <owner> <requester> [dataType...]",
	Short: "Check whether requester may access the given data types of owner",
	Long: `Check whether requester may access the given data types of owner.
Without data types all of them are checked. Any error is reported as denied.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dataTypes, err := parseDataTypeArgs(args[2:])
		if err != nil {
			return err
		}
		return withConsentService(
			cmd.Context(), func(s *consent.Service) error {
				results := s.CheckMultipleConsents(cmd.Context(), args[0], args[1], dataTypes)
				return printChecks(cmd.OutOrStdout(), dataTypes, results)
			},
		)
	},
}

var consentShowCmd = &cobra.Command{
	Use:   "show <owner> <requester> <dataType>",
	Short: "Show the consent record stored for a triple",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		dt, err := consent.ParseDataType(args[2])
		if err != nil {
			return err
		}
		return withConsentService(
			cmd.Context(), func(s *consent.Service) error {
				record := s.ConsentDetails(cmd.Context(), args[0], args[1], dt)
				if record == nil {
					return errors.Errorf("no consent found for %s / %s / %s", args[0], args[1], dt.Name())
				}
				return printRecord(cmd.OutOrStdout(), record, time.Now())
			},
		)
	},
}

var consentHistoryCmd = &cobra.Command{
	Use:   "history <owner>",
	Short: "Reconstruct the consent history of owner from the contract events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConsentService(
			cmd.Context(), func(s *consent.Service) error {
				return printHistory(cmd.OutOrStdout(), s.ConsentLogs(cmd.Context(), args[0]))
			},
		)
	},
}

func init() {
	consentCmd.AddCommand(consentCheckCmd, consentShowCmd, consentHistoryCmd)
}

func parseDataTypeArgs(args []string) ([]consent.DataType, error) {
	if len(args) == 0 {
		return consent.AllDataTypes(), nil
	}
	dataTypes := make([]consent.DataType, len(args))
	for i, a := range args {
		dt, err := consent.ParseDataType(a)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid data type '%s'", a)
		}
		dataTypes[i] = dt
	}
	return dataTypes, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func printChecks(w io.Writer, dataTypes []consent.DataType, results map[consent.DataType]bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATA TYPE\tNAME\tGRANTED")
	for _, dt := range dataTypes {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", dt, dt.Name(), yesNo(results[dt]))
	}
	return tw.Flush()
}

func printRecord(w io.Writer, r *consent.Record, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Owner:\t%s\n", r.Owner)
	fmt.Fprintf(tw, "Requester:\t%s\n", r.Requester)
	fmt.Fprintf(tw, "Data type:\t%d (%s)\n", r.DataType, r.DataType.Name())
	expires := r.ExpiresAt
	if t := r.ExpiresAtTime(); !t.IsZero() {
		expires = fmt.Sprintf("%s (%s)", r.ExpiresAt, t.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(tw, "Expires at:\t%s\n", expires)
	fmt.Fprintf(tw, "Exists:\t%s\n", yesNo(r.Exists))
	fmt.Fprintf(tw, "Active:\t%s\n", yesNo(r.Active))
	fmt.Fprintf(tw, "Valid now:\t%s\n", yesNo(r.ValidAt(now)))
	return tw.Flush()
}

func printHistory(w io.Writer, entries []consent.LogEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No consents found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REQUESTER\tDATA TYPE\tEXPIRES AT\tSTATUS\tBLOCK")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", e.Requester, e.DataType.Name(), e.ExpiresAt, e.Status, e.BlockNumber)
	}
	return tw.Flush()
}
